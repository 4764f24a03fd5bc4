package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stackhaven/authgate/internal/config"
	"github.com/stackhaven/authgate/internal/credentials"
	"github.com/stackhaven/authgate/internal/federation"
	authHandlers "github.com/stackhaven/authgate/internal/handlers/auth"
	"github.com/stackhaven/authgate/internal/middleware"
	"github.com/stackhaven/authgate/internal/session"
	"github.com/stackhaven/authgate/pkg/debug"
)

// Setup wires the full HTTP surface. provider is nil when federated login
// is disabled; in that state the initiation and ACS routes are never
// mounted, while the metadata route stays up and reports every id as
// unknown.
func Setup(cfg *config.Config, store *credentials.Store, authority *session.Authority,
	provider *federation.Provider, publisher *federation.Publisher) *mux.Router {
	debug.Debug("Setting up routes")

	r := mux.NewRouter()
	r.Use(middleware.CorsPolicy(cfg.FrontendBaseURL))
	r.Use(middleware.ResolveSession(authority))

	r.HandleFunc("/health", healthHandler).Methods("GET", "OPTIONS")

	handler := authHandlers.NewHandler(store, authority, cfg.SessionMaxAge)
	ssoHandler := authHandlers.NewSSOHandler(provider, publisher, authority, cfg.FrontendBaseURL, cfg.SessionMaxAge)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", handler.LoginHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/logout", handler.LogoutHandler).Methods("POST", "OPTIONS")
	api.Handle("/me", middleware.RequireAuth(http.HandlerFunc(handler.MeHandler))).Methods("GET", "OPTIONS")
	debug.Info("Configured endpoints: POST /api/auth/login, POST /api/auth/logout, GET /api/me")

	r.HandleFunc("/saml2/service-provider-metadata/{registrationId}", ssoHandler.SAMLMetadata).Methods("GET", "OPTIONS")
	debug.Info("Configured endpoint: GET /saml2/service-provider-metadata/{registrationId}")

	if provider != nil {
		r.HandleFunc("/saml2/authenticate/{registrationId}", ssoHandler.SAMLStart).Methods("GET", "OPTIONS")
		r.HandleFunc("/login/saml2/sso/{registrationId}", ssoHandler.SAMLACS).Methods("POST", "OPTIONS")
		debug.Info("Configured endpoints: GET /saml2/authenticate/{registrationId}, POST /login/saml2/sso/{registrationId}")
	} else {
		debug.Info("Federated login disabled, SSO routes not mounted")
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
