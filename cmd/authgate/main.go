package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stackhaven/authgate/internal/config"
	"github.com/stackhaven/authgate/internal/credentials"
	"github.com/stackhaven/authgate/internal/federation"
	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/internal/relyingparty"
	"github.com/stackhaven/authgate/internal/routes"
	"github.com/stackhaven/authgate/internal/session"
	"github.com/stackhaven/authgate/pkg/debug"
)

func main() {
	// .env is optional; environment variables win either way
	if err := godotenv.Load(); err != nil {
		debug.Debug("No .env file loaded: %v", err)
	}
	debug.Reinitialize()

	cfg, err := config.Load()
	if err != nil {
		debug.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	store, err := buildCredentialStore(cfg)
	if err != nil {
		debug.Error("Failed to build credential store: %v", err)
		os.Exit(1)
	}

	authority := session.NewAuthority(cfg.SessionMaxAge)
	sweeper := session.NewSweeper(authority)
	if err := sweeper.Start(); err != nil {
		debug.Error("Failed to start session sweeper: %v", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	registry := relyingparty.NewRegistry()
	provider := bootstrapFederation(cfg, registry)
	publisher := federation.NewPublisher(registry, cfg.PublicBaseURL)

	router := routes.Setup(cfg, store, authority, provider, publisher)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		debug.Info("authgate listening on %s (frontend origin: %s, federated login: %v)",
			cfg.ListenAddr, cfg.FrontendBaseURL, registry.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			debug.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	debug.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		debug.Warning("HTTP server shutdown: %v", err)
	}
}

// buildCredentialStore seeds the local credential store from AUTHGATE_USERS,
// or with the built-in accounts when unset
func buildCredentialStore(cfg *config.Config) (*credentials.Store, error) {
	var records []*models.CredentialRecord
	var err error
	if cfg.Users != "" {
		records, err = credentials.ParseRecords(cfg.Users)
	} else {
		debug.Warning("AUTHGATE_USERS not set, seeding built-in accounts")
		records, err = credentials.DefaultRecords()
	}
	if err != nil {
		return nil, err
	}
	return credentials.NewStore(records), nil
}

// bootstrapFederation registers the federation partner and builds its
// provider. Every failure here degrades to "federated login disabled"
// rather than aborting startup; local login keeps working.
func bootstrapFederation(cfg *config.Config, registry *relyingparty.Registry) *federation.Provider {
	if !cfg.SAML.Enabled {
		debug.Info("Federated login not configured")
		return nil
	}

	idpMetadata, err := federation.FetchIDPMetadata(context.Background(), cfg.SAML.MetadataURI)
	if err != nil {
		debug.Warning("Failed to load IdP metadata, federated login disabled: %v", err)
		return nil
	}

	var cred *relyingparty.SigningCredential
	if cfg.SAML.SigningCertFile != "" && cfg.SAML.SigningKeyFile != "" {
		cred, err = relyingparty.LoadSigningCredentialFiles(cfg.SAML.SigningCertFile, cfg.SAML.SigningKeyFile)
		if err != nil {
			// Degraded: SP metadata is published unsigned and AuthnRequests
			// go out unsigned. Not fatal.
			debug.Warning("Failed to load SP signing credential, proceeding without signing: %v", err)
			cred = nil
		}
	}

	reg := &relyingparty.Registration{
		RegistrationID:      "entra",
		EntityID:            cfg.SAML.EntityID,
		IDPMetadataLocation: cfg.SAML.MetadataURI,
		IDPMetadata:         idpMetadata,
		SigningCredential:   cred,
	}
	if err := registry.Register(reg); err != nil {
		debug.Warning("Failed to register relying party, federated login disabled: %v", err)
		return nil
	}

	provider, err := federation.NewProvider(reg, cfg.PublicBaseURL)
	if err != nil {
		debug.Warning("Failed to build federation provider, federated login disabled: %v", err)
		return nil
	}
	return provider
}
