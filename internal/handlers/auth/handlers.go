package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	sharedAuth "github.com/stackhaven/authgate/internal/auth"
	"github.com/stackhaven/authgate/internal/credentials"
	"github.com/stackhaven/authgate/internal/middleware"
	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/internal/session"
	"github.com/stackhaven/authgate/pkg/debug"
)

// LoginRequest represents the expected JSON structure for login attempts
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Handler serves the local authentication endpoints
type Handler struct {
	store         *credentials.Store
	authority     *session.Authority
	sessionMaxAge time.Duration
}

// NewHandler creates an authentication handler
func NewHandler(store *credentials.Store, authority *session.Authority, sessionMaxAge time.Duration) *Handler {
	return &Handler{
		store:         store,
		authority:     authority,
		sessionMaxAge: sessionMaxAge,
	}
}

func (h *Handler) cookieMaxAge() int {
	return int(h.sessionMaxAge / time.Second)
}

/*
 * LoginHandler processes local login requests.
 * It verifies the credentials, binds a session, and sets the session cookie.
 *
 * Request body expects JSON:
 * {
 *   "username": "string",
 *   "password": "string"
 * }
 *
 * Responses:
 *   - 200: Successfully logged in, sets session cookie
 *   - 400: Invalid request format
 *   - 401: Invalid credentials (identical for unknown user and wrong password)
 */
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	debug.Debug("Processing login request")

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		debug.Warning("Failed to decode login request: %v", err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	principal, err := h.store.Verify(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, credentials.ErrInvalidCredentials) {
			debug.Error("Credential verification error: %v", err)
		}
		ipAddress, _ := sharedAuth.GetClientInfo(r)
		debug.Info("Failed login attempt for user '%s' from %s", req.Username, ipAddress)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	sessionID := h.authority.Bind(principal)
	sharedAuth.SetSessionCookie(w, r, sessionID, h.cookieMaxAge())
	debug.Info("User '%s' successfully logged in", req.Username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

/*
 * LogoutHandler processes logout requests.
 * It invalidates the session, if any, and expires the session cookie.
 * Logout always reports success: invalidating a missing or already-gone
 * session is not an error.
 *
 * Responses:
 *   - 200: Logged out
 */
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	debug.Debug("Processing logout request")

	if token := sharedAuth.SessionTokenFromRequest(r); token != "" {
		h.authority.Invalidate(token)
	}
	sharedAuth.ClearSessionCookie(w, r)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "logged_out"})
}

/*
 * MeHandler returns the identity summary for the authenticated principal.
 * The attribute map appears only for federated logins; local principals
 * never expose one.
 *
 * Responses:
 *   - 200: Identity summary
 *   - 401: No active session
 */
func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.SummarizeIdentity(principal))
}
