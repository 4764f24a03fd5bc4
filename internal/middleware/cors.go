package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// federatedPathPrefixes are the SSO protocol-initiation and
// assertion-consumer paths. The IdP's redirect or POST back to these can
// originate from a domain this deployment does not control (tenant
// subdomains, corporate proxies), so they get the permissive policy. The
// relaxation is limited to exactly these prefixes.
var federatedPathPrefixes = []string{
	"/login/saml2/",
	"/saml2/",
}

// CorsPolicy returns a middleware that applies one of two cross-origin
// policies by request path: the federated callback prefixes accept any
// origin, every other path accepts only the configured frontend origin.
// Both policies allow GET/POST/OPTIONS with credentials.
func CorsPolicy(frontendBaseURL string) func(http.Handler) http.Handler {
	frontendOrigin := strings.TrimRight(frontendBaseURL, "/")
	if frontendOrigin == "" {
		frontendOrigin = "http://localhost:3000"
	}

	strict := cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// AllowOriginFunc (rather than AllowedOrigins: "*") so the handler
	// echoes the request origin; a literal wildcard is ignored by browsers
	// when credentials are allowed.
	permissive := cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return func(next http.Handler) http.Handler {
		strictNext := strict(next)
		permissiveNext := permissive(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isFederatedPath(r.URL.Path) {
				permissiveNext.ServeHTTP(w, r)
				return
			}
			strictNext.ServeHTTP(w, r)
		})
	}
}

func isFederatedPath(path string) bool {
	for _, prefix := range federatedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
