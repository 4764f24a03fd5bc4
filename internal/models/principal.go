package models

import (
	"time"
)

// PrincipalSource identifies which credential path authenticated a principal
type PrincipalSource string

const (
	SourceLocal     PrincipalSource = "local"
	SourceFederated PrincipalSource = "federated"
)

// Valid returns true if the principal source is valid
func (s PrincipalSource) Valid() bool {
	switch s {
	case SourceLocal, SourceFederated:
		return true
	default:
		return false
	}
}

// Principal is the identity resolved after a successful authentication.
// It is immutable for the lifetime of the login event that produced it;
// Attributes is nil for local principals and carries the raw assertion
// attribute map for federated ones.
type Principal struct {
	Subject     string              `json:"subject"`
	DisplayName string              `json:"display_name"`
	Roles       []string            `json:"roles"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
	Source      PrincipalSource     `json:"source"`
}

// HasRole returns true if the principal carries the given role
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CredentialRecord is a local-auth entity loaded from static configuration
// at process start. Records are never mutated at runtime.
type CredentialRecord struct {
	Username   string
	SecretHash string
	Roles      []string
}

// Session binds an opaque token to an authenticated principal. Sessions are
// owned exclusively by the session authority.
type Session struct {
	ID        string
	Principal *Principal
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// IdentitySummary is the normalized shape returned by the whoami endpoint.
// Attributes is present only for federated principals; its absence, not an
// empty map, signals a local login.
type IdentitySummary struct {
	Name        string              `json:"name"`
	Authorities []string            `json:"authorities"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
}

// SummarizeIdentity builds the whoami response shape for a principal
func SummarizeIdentity(p *Principal) *IdentitySummary {
	summary := &IdentitySummary{
		Name:        p.DisplayName,
		Authorities: append([]string(nil), p.Roles...),
	}
	if summary.Name == "" {
		summary.Name = p.Subject
	}
	if p.Source == SourceFederated && p.Attributes != nil {
		summary.Attributes = p.Attributes
	}
	return summary
}
