package federation

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/stackhaven/authgate/internal/relyingparty"
	"github.com/stackhaven/authgate/pkg/debug"
)

// ErrUnknownRegistration is returned when metadata is requested for a
// registration id that does not exist (including every id when federation
// is disabled)
var ErrUnknownRegistration = errors.New("unknown relying party registration")

// Publisher renders SP metadata XML for the IdP and admin tooling. Rendering
// is pure given the registration; the IdP's own metadata was already fetched
// at registration time.
type Publisher struct {
	registry      *relyingparty.Registry
	publicBaseURL string
}

// NewPublisher creates a metadata publisher backed by the registry
func NewPublisher(registry *relyingparty.Registry, publicBaseURL string) *Publisher {
	return &Publisher{registry: registry, publicBaseURL: publicBaseURL}
}

// Publish renders the SP metadata document for the given registration id.
// When the registration carries a signing credential the public certificate
// is embedded for signature verification by the IdP; without one the
// document is published unsigned rather than failing.
func (p *Publisher) Publish(registrationID string) ([]byte, error) {
	reg := p.registry.Find(registrationID)
	if reg == nil {
		debug.Warning("Requested metadata for unknown registration id %q", registrationID)
		return nil, ErrUnknownRegistration
	}

	sp, err := newServiceProvider(reg, p.publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build service provider for %s: %w", registrationID, err)
	}

	metadata := sp.Metadata()
	xmlData, err := xml.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	debug.Debug("Serving SP metadata for registration id %s", registrationID)
	return append([]byte(xml.Header), xmlData...), nil
}
