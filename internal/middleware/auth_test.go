package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stackhaven/authgate/internal/auth"
	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/internal/session"
)

func echoPrincipal(t *testing.T, captured **models.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolveSessionAttachesPrincipal(t *testing.T) {
	authority := session.NewAuthority(time.Hour)
	token := authority.Bind(&models.Principal{Subject: "alice", Source: models.SourceLocal})

	var captured *models.Principal
	handler := ResolveSession(authority)(echoPrincipal(t, &captured))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if captured == nil || captured.Subject != "alice" {
		t.Errorf("Expected principal alice in context, got %+v", captured)
	}
}

func TestResolveSessionPassesThroughUnauthenticated(t *testing.T) {
	authority := session.NewAuthority(time.Hour)

	var captured *models.Principal
	handler := ResolveSession(authority)(echoPrincipal(t, &captured))

	// No cookie at all
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Request without cookie should pass through, got %d", rec.Code)
	}
	if captured != nil {
		t.Errorf("Expected nil principal, got %+v", captured)
	}

	// Stale cookie
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "stale-token"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if captured != nil {
		t.Errorf("Stale token should not resolve, got %+v", captured)
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without principal, got %d", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/me", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &models.Principal{Subject: "alice"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with principal, got %d", rec.Code)
	}

	// Preflight requests carry no credentials and must not be rejected
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/me", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected preflight passthrough, got %d", rec.Code)
	}
}
