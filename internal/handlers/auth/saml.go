package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	sharedAuth "github.com/stackhaven/authgate/internal/auth"
	"github.com/stackhaven/authgate/internal/federation"
	"github.com/stackhaven/authgate/internal/session"
	"github.com/stackhaven/authgate/pkg/debug"
)

// SSOHandler serves the federated login endpoints and SP metadata. With
// federation disabled the provider is nil, the login routes are never
// mounted, and the metadata endpoint reports every id as unknown.
type SSOHandler struct {
	provider        *federation.Provider
	publisher       *federation.Publisher
	authority       *session.Authority
	frontendBaseURL string
	sessionMaxAge   time.Duration
}

// NewSSOHandler creates a handler for the federated login flow
func NewSSOHandler(provider *federation.Provider, publisher *federation.Publisher,
	authority *session.Authority, frontendBaseURL string, sessionMaxAge time.Duration) *SSOHandler {
	return &SSOHandler{
		provider:        provider,
		publisher:       publisher,
		authority:       authority,
		frontendBaseURL: frontendBaseURL,
		sessionMaxAge:   sessionMaxAge,
	}
}

/*
 * SAMLStart initiates the federated login flow by redirecting the browser
 * to the IdP with a signed (when configured) AuthnRequest.
 *
 * Responses:
 *   - 302: Redirect to the IdP
 *   - 404: Unknown registration id
 *   - 500: Failed to build the AuthnRequest
 */
func (h *SSOHandler) SAMLStart(w http.ResponseWriter, r *http.Request) {
	registrationID := mux.Vars(r)["registrationId"]
	if h.provider == nil || registrationID != h.provider.RegistrationID() {
		debug.Warning("Federated login start for unknown registration id %q", registrationID)
		http.NotFound(w, r)
		return
	}

	startURL, err := h.provider.StartURL(h.frontendBaseURL)
	if err != nil {
		debug.Error("Failed to initiate federated login: %v", err)
		http.Error(w, "Failed to initiate authentication", http.StatusInternalServerError)
		return
	}

	debug.Info("Redirecting to IdP for registration id %s", registrationID)
	http.Redirect(w, r, startURL, http.StatusFound)
}

/*
 * SAMLACS is the assertion consumer service. The SAML library fully
 * validates the posted response; on success the asserted principal is bound
 * into a session exactly as a local login would be, and the browser is
 * redirected to the frontend.
 *
 * Responses:
 *   - 302: Redirect to the frontend with the session cookie set
 *   - 403: Assertion rejected (cause logged server-side only)
 *   - 404: Unknown registration id
 */
func (h *SSOHandler) SAMLACS(w http.ResponseWriter, r *http.Request) {
	registrationID := mux.Vars(r)["registrationId"]
	if h.provider == nil || registrationID != h.provider.RegistrationID() {
		debug.Warning("ACS request for unknown registration id %q", registrationID)
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		debug.Warning("Failed to parse ACS form: %v", err)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	principal, err := h.provider.ConsumeResponse(r)
	if err != nil {
		if errors.Is(err, federation.ErrAssertionReplayed) {
			debug.Warning("Rejected replayed assertion from %s", sharedAuth.GetClientIP(r))
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	sessionID := h.authority.Bind(principal)
	sharedAuth.SetSessionCookie(w, r, sessionID, int(h.sessionMaxAge/time.Second))
	debug.Info("Federated login completed for subject '%s'", principal.Subject)

	http.Redirect(w, r, h.frontendBaseURL, http.StatusFound)
}

/*
 * SAMLMetadata serves the SP metadata document for the given registration
 * id. When signing material failed to load at startup the document is
 * served unsigned.
 *
 * Responses:
 *   - 200: application/xml metadata
 *   - 404: Unknown registration id
 */
func (h *SSOHandler) SAMLMetadata(w http.ResponseWriter, r *http.Request) {
	registrationID := mux.Vars(r)["registrationId"]

	metadata, err := h.publisher.Publish(registrationID)
	if err != nil {
		if errors.Is(err, federation.ErrUnknownRegistration) {
			http.NotFound(w, r)
			return
		}
		debug.Error("Failed to render SP metadata for %s: %v", registrationID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write(metadata)
}
