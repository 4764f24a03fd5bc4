package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stackhaven/authgate/internal/models"
)

func localPrincipal(subject string) *models.Principal {
	return &models.Principal{
		Subject:     subject,
		DisplayName: subject,
		Roles:       []string{"USER"},
		Source:      models.SourceLocal,
	}
}

func TestBindAndLookup(t *testing.T) {
	a := NewAuthority(time.Hour)

	id := a.Bind(localPrincipal("alice"))
	if id == "" {
		t.Fatal("Bind returned an empty session id")
	}

	principal := a.Lookup(id)
	if principal == nil {
		t.Fatal("Lookup returned nil for a live session")
	}
	if principal.Subject != "alice" {
		t.Errorf("Expected subject alice, got %q", principal.Subject)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	a := NewAuthority(time.Hour)
	if principal := a.Lookup("not-a-session"); principal != nil {
		t.Errorf("Expected nil for unknown token, got %+v", principal)
	}
}

// TestNewLoginEvictsOldSession checks the single-session-per-subject
// policy: the newest login wins and the prior token becomes invalid.
func TestNewLoginEvictsOldSession(t *testing.T) {
	a := NewAuthority(time.Hour)

	first := a.Bind(localPrincipal("alice"))
	second := a.Bind(localPrincipal("alice"))

	if first == second {
		t.Fatal("Expected distinct session ids")
	}
	if principal := a.Lookup(first); principal != nil {
		t.Error("Old session token should be invalid after a new login")
	}
	if principal := a.Lookup(second); principal == nil {
		t.Error("New session token should be valid")
	}
	if count := a.ActiveCount(); count != 1 {
		t.Errorf("Expected 1 active session, got %d", count)
	}
}

func TestDifferentSubjectsDoNotEvictEachOther(t *testing.T) {
	a := NewAuthority(time.Hour)

	aliceID := a.Bind(localPrincipal("alice"))
	bobID := a.Bind(localPrincipal("bob"))

	if a.Lookup(aliceID) == nil || a.Lookup(bobID) == nil {
		t.Error("Sessions for different subjects must coexist")
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	a := NewAuthority(time.Hour)

	id := a.Bind(localPrincipal("alice"))
	a.Invalidate(id)
	if a.Lookup(id) != nil {
		t.Error("Session should be gone after Invalidate")
	}

	// Repeat invalidations and invalidating the never-existed must not panic
	a.Invalidate(id)
	a.Invalidate("never-existed")
}

// TestInvalidateOldTokenKeepsNewSession checks that a stale token cannot
// tear down the subject's newer session
func TestInvalidateOldTokenKeepsNewSession(t *testing.T) {
	a := NewAuthority(time.Hour)

	old := a.Bind(localPrincipal("alice"))
	current := a.Bind(localPrincipal("alice"))

	a.Invalidate(old)
	if a.Lookup(current) == nil {
		t.Error("Invalidating a stale token must not affect the live session")
	}
}

func TestSessionExpiry(t *testing.T) {
	a := NewAuthority(20 * time.Millisecond)

	id := a.Bind(localPrincipal("alice"))
	if a.Lookup(id) == nil {
		t.Fatal("Session should be valid immediately after bind")
	}

	time.Sleep(40 * time.Millisecond)
	if a.Lookup(id) != nil {
		t.Error("Expired session should resolve to nil")
	}

	if removed := a.removeExpired(); removed != 1 {
		t.Errorf("Expected sweep to remove 1 session, got %d", removed)
	}
	if count := a.ActiveCount(); count != 0 {
		t.Errorf("Expected no active sessions after sweep, got %d", count)
	}
}

// TestSweepKeepsLiveSessions checks the sweep only reclaims expired entries
func TestSweepKeepsLiveSessions(t *testing.T) {
	a := NewAuthority(time.Hour)

	id := a.Bind(localPrincipal("alice"))
	if removed := a.removeExpired(); removed != 0 {
		t.Errorf("Sweep removed %d live sessions", removed)
	}
	if a.Lookup(id) == nil {
		t.Error("Live session should survive the sweep")
	}
}

// TestConcurrentBindsSingleSubject hammers one subject from many goroutines
// and checks the invariant that at most one session survives
func TestConcurrentBindsSingleSubject(t *testing.T) {
	a := NewAuthority(time.Hour)

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = a.Bind(localPrincipal("alice"))
		}(i)
	}
	wg.Wait()

	live := 0
	for _, id := range ids {
		if a.Lookup(id) != nil {
			live++
		}
	}
	if live != 1 {
		t.Errorf("Expected exactly 1 surviving session, got %d", live)
	}
	if count := a.ActiveCount(); count != 1 {
		t.Errorf("Expected ActiveCount 1, got %d", count)
	}
}

func TestConcurrentBindsManySubjects(t *testing.T) {
	a := NewAuthority(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subject := fmt.Sprintf("user-%d", i)
			id := a.Bind(localPrincipal(subject))
			if a.Lookup(id) == nil {
				t.Errorf("Session for %s not found after bind", subject)
			}
			a.Invalidate(id)
		}(i)
	}
	wg.Wait()

	if count := a.ActiveCount(); count != 0 {
		t.Errorf("Expected no sessions after invalidation, got %d", count)
	}
}
