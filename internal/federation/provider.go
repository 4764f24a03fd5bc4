package federation

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/crewjam/saml"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/internal/relyingparty"
	"github.com/stackhaven/authgate/pkg/debug"
)

// Common errors for the federation flow
var (
	ErrFederationDisabled = errors.New("federated login is not configured")
	ErrAssertionInvalid   = errors.New("assertion validation failed")
	ErrAssertionReplayed  = errors.New("assertion replay detected")
)

const (
	// rsaSHA256 is the signature method used on signed AuthnRequests
	rsaSHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

	// pendingRequestTTL bounds how long an outstanding AuthnRequest ID is
	// accepted in a response's InResponseTo
	pendingRequestTTL = 10 * time.Minute

	// assertionCacheTTL bounds the replay guard window; assertions are
	// rejected by the validator on freshness grounds long before this
	assertionCacheTTL = 15 * time.Minute

	cacheSize = 4096
)

// FederatedRoles is the default role set granted to federated principals
var FederatedRoles = []string{"USER"}

// Provider drives the SP side of the federated login flow for the single
// registered partner. Signature, audience and freshness validation of the
// IdP's response is performed entirely by the SAML library; this type only
// initiates the flow, guards against assertion replay, and turns a
// validated assertion into a principal.
type Provider struct {
	registration    *relyingparty.Registration
	sp              *saml.ServiceProvider
	pendingRequests *expirable.LRU[string, string]
	seenAssertions  *expirable.LRU[string, time.Time]
}

// NewProvider creates a federation provider for the given registration.
// publicBaseURL is the externally reachable base URL of this gateway, used
// to derive the ACS and metadata endpoints advertised to the IdP.
func NewProvider(reg *relyingparty.Registration, publicBaseURL string) (*Provider, error) {
	sp, err := newServiceProvider(reg, publicBaseURL)
	if err != nil {
		return nil, err
	}
	return &Provider{
		registration:    reg,
		sp:              sp,
		pendingRequests: expirable.NewLRU[string, string](cacheSize, nil, pendingRequestTTL),
		seenAssertions:  expirable.NewLRU[string, time.Time](cacheSize, nil, assertionCacheTTL),
	}, nil
}

// newServiceProvider builds the library-level service provider shared by the
// login flow and the metadata publisher
func newServiceProvider(reg *relyingparty.Registration, publicBaseURL string) (*saml.ServiceProvider, error) {
	acsURL, err := url.Parse(publicBaseURL + "/login/saml2/sso/" + reg.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("invalid ACS URL: %w", err)
	}
	metadataURL, err := url.Parse(publicBaseURL + "/saml2/service-provider-metadata/" + reg.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("invalid metadata URL: %w", err)
	}

	sp := &saml.ServiceProvider{
		EntityID:          reg.EntityID,
		IDPMetadata:       reg.IDPMetadata,
		AcsURL:            *acsURL,
		MetadataURL:       *metadataURL,
		AllowIDPInitiated: true,
	}

	if cred := reg.SigningCredential; cred != nil {
		sp.Key = cred.PrivateKey
		sp.Certificate = cred.Certificate
		sp.SignatureMethod = rsaSHA256
	}

	return sp, nil
}

// RegistrationID returns the id of the registered federation partner
func (p *Provider) RegistrationID() string {
	return p.registration.RegistrationID
}

// StartURL generates an AuthnRequest, records its ID for InResponseTo
// matching, and returns the IdP redirect URL
func (p *Provider) StartURL(relayState string) (string, error) {
	authnRequest, err := p.sp.MakeAuthenticationRequest(
		p.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding),
		saml.HTTPRedirectBinding,
		saml.HTTPPostBinding,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create AuthnRequest: %w", err)
	}

	p.pendingRequests.Add(authnRequest.ID, relayState)

	redirectURL, err := authnRequest.Redirect(relayState, p.sp)
	if err != nil {
		return "", fmt.Errorf("failed to generate redirect URL: %w", err)
	}

	debug.Info("Generated AuthnRequest %s for relying party %s", authnRequest.ID, p.registration.RegistrationID)
	return redirectURL.String(), nil
}

// ConsumeResponse validates the IdP response posted to the ACS endpoint and
// returns the federated principal it asserts. The input request is trusted
// only after the library has verified signature, audience and freshness.
func (p *Provider) ConsumeResponse(r *http.Request) (*models.Principal, error) {
	assertion, err := p.sp.ParseResponse(r, p.pendingRequests.Keys())
	if err != nil {
		// The library wraps the real cause; keep it out of anything
		// caller-visible and log it server-side only.
		var ire *saml.InvalidResponseError
		if errors.As(err, &ire) {
			debug.Error("Assertion validation failed for relying party %s: %v", p.registration.RegistrationID, ire.PrivateErr)
		} else {
			debug.Error("Assertion validation failed for relying party %s: %v", p.registration.RegistrationID, err)
		}
		return nil, ErrAssertionInvalid
	}

	if p.seenAssertions.Contains(assertion.ID) {
		debug.Warning("Replayed assertion %s for relying party %s", assertion.ID, p.registration.RegistrationID)
		return nil, ErrAssertionReplayed
	}
	p.seenAssertions.Add(assertion.ID, time.Now())

	// Consume the pending request this response answered, if any
	// (IdP-initiated responses have no InResponseTo).
	if inResponseTo := responseInResponseTo(assertion); inResponseTo != "" {
		p.pendingRequests.Remove(inResponseTo)
	}

	principal := ExtractPrincipal(assertion)
	debug.Info("Federated login validated for subject '%s' via relying party %s", principal.Subject, p.registration.RegistrationID)
	return principal, nil
}

// responseInResponseTo digs the answered request ID out of the assertion's
// subject confirmation
func responseInResponseTo(assertion *saml.Assertion) string {
	if assertion.Subject == nil {
		return ""
	}
	for _, confirmation := range assertion.Subject.SubjectConfirmations {
		if confirmation.SubjectConfirmationData != nil && confirmation.SubjectConfirmationData.InResponseTo != "" {
			return confirmation.SubjectConfirmationData.InResponseTo
		}
	}
	return ""
}

// ExtractPrincipal builds a federated principal from a validated assertion.
// It performs no verification of its own.
func ExtractPrincipal(assertion *saml.Assertion) *models.Principal {
	principal := &models.Principal{
		Roles:      append([]string(nil), FederatedRoles...),
		Attributes: make(map[string][]string),
		Source:     models.SourceFederated,
	}

	if assertion.Subject != nil && assertion.Subject.NameID != nil {
		principal.Subject = assertion.Subject.NameID.Value
	}

	for _, stmt := range assertion.AttributeStatements {
		for _, attr := range stmt.Attributes {
			name := attr.Name
			if name == "" {
				name = attr.FriendlyName
			}
			if name == "" {
				continue
			}
			for _, v := range attr.Values {
				principal.Attributes[name] = append(principal.Attributes[name], v.Value)
			}
		}
	}

	principal.DisplayName = firstAttributeValue(assertion, "displayName", "cn", "name",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name",
		"http://schemas.microsoft.com/identity/claims/displayname")

	// If the NameID was absent, fall back to an email attribute
	if principal.Subject == "" {
		principal.Subject = firstAttributeValue(assertion, "email", "mail",
			"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress")
	}
	if principal.DisplayName == "" {
		principal.DisplayName = principal.Subject
	}

	return principal
}

// firstAttributeValue searches for an attribute value by multiple possible names
func firstAttributeValue(assertion *saml.Assertion, names ...string) string {
	for _, stmt := range assertion.AttributeStatements {
		for _, attr := range stmt.Attributes {
			for _, name := range names {
				if attr.Name == name || attr.FriendlyName == name {
					if len(attr.Values) > 0 {
						return attr.Values[0].Value
					}
				}
			}
		}
	}
	return ""
}
