package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/pkg/debug"
)

// Authority owns the mapping from session token to authenticated principal.
// It enforces at most one active session per principal subject: a new login
// for a subject evicts that subject's previous session rather than being
// refused (the newest login always wins).
//
// A single authority-wide mutex guards both maps; subject-level contention
// is expected to be low enough that finer locking isn't worth it.
type Authority struct {
	mu        sync.Mutex
	byID      map[string]*models.Session
	bySubject map[string]string
	maxAge    time.Duration
}

// NewAuthority creates a session authority. maxAge bounds session lifetime;
// zero means sessions never expire on their own.
func NewAuthority(maxAge time.Duration) *Authority {
	return &Authority{
		byID:      make(map[string]*models.Session),
		bySubject: make(map[string]string),
		maxAge:    maxAge,
	}
}

// Bind creates a new active session for the principal and returns its token.
// If the subject already holds a session, that session's token becomes
// invalid immediately.
func (a *Authority) Bind(principal *models.Principal) string {
	now := time.Now()
	sess := &models.Session{
		ID:        uuid.New().String(),
		Principal: principal,
		CreatedAt: now,
	}
	if a.maxAge > 0 {
		sess.ExpiresAt = now.Add(a.maxAge)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if oldID, ok := a.bySubject[principal.Subject]; ok {
		delete(a.byID, oldID)
		debug.Info("Evicted prior session for subject '%s' on new login", principal.Subject)
	}
	a.byID[sess.ID] = sess
	a.bySubject[principal.Subject] = sess.ID

	debug.Debug("Bound session for subject '%s' (source: %s)", principal.Subject, principal.Source)
	return sess.ID
}

// Lookup resolves a session token to its principal. It is read-only: it
// neither extends nor invalidates the session. Expired and unknown tokens
// both resolve to nil.
func (a *Authority) Lookup(sessionID string) *models.Principal {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.byID[sessionID]
	if !ok || sess.Expired(time.Now()) {
		return nil
	}
	return sess.Principal
}

// Invalidate removes the session for the given token. Invalidating a
// missing or already-removed session is not an error.
func (a *Authority) Invalidate(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.byID[sessionID]
	if !ok {
		return
	}
	delete(a.byID, sessionID)
	// Only drop the subject mapping if it still points at this session;
	// a newer login may already own it.
	if a.bySubject[sess.Principal.Subject] == sessionID {
		delete(a.bySubject, sess.Principal.Subject)
	}
	debug.Debug("Invalidated session for subject '%s'", sess.Principal.Subject)
}

// ActiveCount returns the number of live (non-expired) sessions
func (a *Authority) ActiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	count := 0
	for _, sess := range a.byID {
		if !sess.Expired(now) {
			count++
		}
	}
	return count
}

// removeExpired drops every session past its expiry and returns how many
// were removed. Called by the sweeper.
func (a *Authority) removeExpired() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, sess := range a.byID {
		if !sess.Expired(now) {
			continue
		}
		delete(a.byID, id)
		if a.bySubject[sess.Principal.Subject] == id {
			delete(a.bySubject, sess.Principal.Subject)
		}
		removed++
	}
	return removed
}
