package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// SAMLConfig holds the federated-login configuration. When Enabled is false
// the federated login path is entirely absent, not partially available.
type SAMLConfig struct {
	Enabled         bool
	MetadataURI     string
	EntityID        string
	SigningCertFile string
	SigningKeyFile  string
}

// Config is the gateway's environment-driven configuration, read once at
// startup
type Config struct {
	// ListenAddr is the address the HTTP server binds to
	ListenAddr string
	// FrontendBaseURL is the SPA origin; it is both the only origin the
	// strict CORS policy accepts and the post-login redirect target
	FrontendBaseURL string
	// PublicBaseURL is the externally reachable base URL of this gateway,
	// used in the ACS and metadata URLs advertised to the IdP
	PublicBaseURL string
	// Users is the AUTHGATE_USERS value; empty means the built-in accounts
	Users string
	// SessionMaxAge bounds session lifetime
	SessionMaxAge time.Duration
	// SAML is the federated-login section
	SAML SAMLConfig
}

// Load reads configuration from the environment, applying defaults.
// godotenv has already populated the environment from .env by the time this
// runs.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		FrontendBaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Users:           os.Getenv("AUTHGATE_USERS"),
		SAML: SAMLConfig{
			Enabled:         getEnvBool("SAML_ENABLED", false),
			MetadataURI:     os.Getenv("SAML_METADATA_URI"),
			EntityID:        os.Getenv("SAML_ENTITY_ID"),
			SigningCertFile: os.Getenv("SAML_SP_SIGNING_CERT_FILE"),
			SigningKeyFile:  os.Getenv("SAML_SP_SIGNING_KEY_FILE"),
		},
	}

	maxAgeMinutes, err := getEnvInt("SESSION_MAX_AGE_MINUTES", 480)
	if err != nil {
		return nil, err
	}
	if maxAgeMinutes <= 0 {
		return nil, fmt.Errorf("SESSION_MAX_AGE_MINUTES must be positive")
	}
	cfg.SessionMaxAge = time.Duration(maxAgeMinutes) * time.Minute

	if cfg.SAML.Enabled {
		if cfg.SAML.MetadataURI == "" {
			return nil, fmt.Errorf("SAML_METADATA_URI is required when SAML_ENABLED is true")
		}
		if cfg.SAML.EntityID == "" {
			return nil, fmt.Errorf("SAML_ENTITY_ID is required when SAML_ENABLED is true")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value == "true" || value == "1"
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
