package auth

import (
	"net/http"
	"strings"

	"github.com/stackhaven/authgate/pkg/debug"
)

// SessionCookieName is the cookie that carries the opaque session token
const SessionCookieName = "session"

// GetCookieDomain extracts the domain from the request host for cookie setting
func GetCookieDomain(host string) string {
	// Strip the port; frontend and backend run on different ports in dev
	if colonIndex := strings.Index(host, ":"); colonIndex != -1 {
		host = host[:colonIndex]
	}

	// For localhost development, leave the domain unset so the cookie is
	// shared across ports
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}
	return host
}

// SetSessionCookie sets the session cookie with the given token.
// maxAge is in seconds; a negative value expires the cookie.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	isDevelopment := strings.Contains(r.Host, "localhost") || strings.Contains(r.Host, "127.0.0.1")

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   !isDevelopment,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	}

	if domain := GetCookieDomain(r.Host); domain != "" {
		cookie.Domain = domain
	}

	debug.Debug("[COOKIE] Setting session cookie - secure=%v, domain=%q, maxAge=%d",
		cookie.Secure, cookie.Domain, cookie.MaxAge)
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	SetSessionCookie(w, r, "", -1)
}

// SessionTokenFromRequest returns the session token from the request cookie,
// or "" when no session cookie is present
func SessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetClientInfo extracts client IP address and User-Agent from request
func GetClientInfo(r *http.Request) (ipAddress string, userAgent string) {
	ipAddress = r.Header.Get("X-Forwarded-For")
	if ipAddress != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if idx := strings.Index(ipAddress, ","); idx != -1 {
			ipAddress = strings.TrimSpace(ipAddress[:idx])
		}
	}

	if ipAddress == "" {
		ipAddress = r.Header.Get("X-Real-IP")
	}

	if ipAddress == "" {
		ipAddress = r.RemoteAddr
		if idx := strings.LastIndex(ipAddress, ":"); idx != -1 {
			ipAddress = ipAddress[:idx]
		}
	}

	userAgent = r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "Unknown"
	}

	return ipAddress, userAgent
}

// GetClientIP extracts only the client IP address from request
func GetClientIP(r *http.Request) string {
	ipAddress, _ := GetClientInfo(r)
	return ipAddress
}
