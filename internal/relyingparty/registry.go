package relyingparty

import (
	"fmt"

	"github.com/crewjam/saml"

	"github.com/stackhaven/authgate/pkg/debug"
)

// Registration is the SP's record of one trusted federation partner. It is
// immutable for the process lifetime; hot-reload is not supported.
type Registration struct {
	// RegistrationID labels the federation partner, e.g. "entra"
	RegistrationID string
	// EntityID is the SP entity ID advertised to the IdP
	EntityID string
	// IDPMetadataLocation is where the IdP metadata was fetched from
	IDPMetadataLocation string
	// IDPMetadata is the fetched and parsed IdP metadata document
	IDPMetadata *saml.EntityDescriptor
	// SigningCredential is the SP signing identity. nil means metadata is
	// published unsigned (degraded, not an error).
	SigningCredential *SigningCredential
}

// Registry holds zero or one relying-party registration. An empty registry
// means federated login is disabled, which is a valid first-class state all
// dependents must check for explicitly. The registry is read-only after
// startup and needs no locking.
type Registry struct {
	registration *Registration
}

// NewRegistry creates an empty registry (federated login disabled)
func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs the single registration. Calling it twice is a
// configuration error.
func (r *Registry) Register(reg *Registration) error {
	if r.registration != nil {
		return fmt.Errorf("relying party %q already registered", r.registration.RegistrationID)
	}
	if reg.RegistrationID == "" {
		return fmt.Errorf("registration ID is required")
	}
	if reg.EntityID == "" {
		return fmt.Errorf("entity ID is required")
	}
	if reg.IDPMetadata == nil {
		return fmt.Errorf("IdP metadata is required")
	}
	r.registration = reg

	if reg.SigningCredential == nil {
		debug.Warning("Relying party %q registered without a signing credential; SP metadata will be published unsigned", reg.RegistrationID)
	} else {
		debug.Info("Relying party %q registered with signing credential", reg.RegistrationID)
	}
	return nil
}

// Find returns the registration for the given id, or nil when the id is
// unknown or federation is disabled
func (r *Registry) Find(registrationID string) *Registration {
	if r.registration == nil || r.registration.RegistrationID != registrationID {
		return nil
	}
	return r.registration
}

// Registration returns the single registration, or nil when federation is
// disabled
func (r *Registry) Registration() *Registration {
	return r.registration
}

// Enabled reports whether a federation partner is registered
func (r *Registry) Enabled() bool {
	return r.registration != nil
}
