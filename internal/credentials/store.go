package credentials

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/stackhaven/authgate/internal/models"
	"github.com/stackhaven/authgate/pkg/debug"
)

// ErrInvalidCredentials is returned for every local authentication failure.
// Callers must not be able to tell an unknown username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the username is unknown so that the
// failure path costs a bcrypt verification either way.
var dummyHash []byte

func init() {
	h, err := bcrypt.GenerateFromPassword([]byte("credential-store-timing-pad"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("credentials: failed to generate pad hash: %v", err))
	}
	dummyHash = h
}

// Store holds the local principal records. It is populated once at startup
// and read-only afterwards, so no locking is needed.
type Store struct {
	records map[string]*models.CredentialRecord
}

// NewStore creates a credential store from a set of records
func NewStore(records []*models.CredentialRecord) *Store {
	s := &Store{records: make(map[string]*models.CredentialRecord, len(records))}
	for _, rec := range records {
		s.records[rec.Username] = rec
	}
	debug.Info("Credential store initialized with %d local users", len(s.records))
	return s
}

// Hash produces a stored secret hash from a plaintext password
func Hash(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Verify checks a username/password pair against the store. On success it
// returns a freshly built local principal. Every failure returns
// ErrInvalidCredentials.
func (s *Store) Verify(username, password string) (*models.Principal, error) {
	rec, ok := s.records[username]
	if !ok {
		// Burn a comparison anyway to keep unknown-user and wrong-password
		// failures indistinguishable by timing.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		debug.Info("Failed login attempt for unknown user '%s'", username)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.SecretHash), []byte(password)); err != nil {
		debug.Info("Invalid password for user '%s'", username)
		return nil, ErrInvalidCredentials
	}

	return &models.Principal{
		Subject:     rec.Username,
		DisplayName: rec.Username,
		Roles:       append([]string(nil), rec.Roles...),
		Source:      models.SourceLocal,
	}, nil
}

// Usernames returns the usernames known to the store
func (s *Store) Usernames() []string {
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	return names
}

// ParseRecords parses the AUTHGATE_USERS configuration value. The format is
// a comma-separated list of username:bcrypt-hash:role|role entries, e.g.
//
//	user:$2a$10$...:USER,admin:$2a$10$...:ADMIN|USER
func ParseRecords(value string) ([]*models.CredentialRecord, error) {
	var records []*models.CredentialRecord
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed user entry %q", entry)
		}
		if _, err := bcrypt.Cost([]byte(parts[1])); err != nil {
			return nil, fmt.Errorf("user %q has an invalid bcrypt hash: %w", parts[0], err)
		}
		var roles []string
		for _, role := range strings.Split(parts[2], "|") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
		records = append(records, &models.CredentialRecord{
			Username:   parts[0],
			SecretHash: parts[1],
			Roles:      roles,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no user entries found")
	}
	return records, nil
}

// DefaultRecords seeds the two built-in accounts used when AUTHGATE_USERS is
// not configured. Hashes are computed at startup so the plaintext never
// appears in a stored form.
func DefaultRecords() ([]*models.CredentialRecord, error) {
	userHash, err := Hash("password")
	if err != nil {
		return nil, err
	}
	adminHash, err := Hash("adminpass")
	if err != nil {
		return nil, err
	}
	return []*models.CredentialRecord{
		{Username: "user", SecretHash: userHash, Roles: []string{"USER"}},
		{Username: "admin", SecretHash: adminHash, Roles: []string{"ADMIN", "USER"}},
	}, nil
}
