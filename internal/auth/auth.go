// Package auth holds who is calling the library and what they may do.
//
// The ledger itself performs no authorization. Callers authenticate through
// a CredentialVerifier, carry the resulting Principal in the request context
// and check its Role before invoking admin-only operations.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RolePatron Role = "patron"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePatron
}

// Principal is an authenticated caller.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier checks a username/password pair.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*Principal, error)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type account struct {
	role Role
	hash []byte
}

// BcryptVerifier verifies passwords against bcrypt hashes held in memory.
type BcryptVerifier struct {
	accounts map[string]account
}

// ParseAccounts builds a BcryptVerifier from comma-separated
// username:role:bcrypt-hash entries.
func ParseAccounts(accounts string) (*BcryptVerifier, error) {
	v := &BcryptVerifier{accounts: make(map[string]account)}
	for _, entry := range strings.Split(accounts, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid account entry %q: want username:role:hash", entry)
		}
		username := strings.ToLower(strings.TrimSpace(parts[0]))
		role := Role(strings.TrimSpace(parts[1]))
		hash := strings.TrimSpace(parts[2])
		if username == "" {
			return nil, fmt.Errorf("invalid account entry %q: empty username", entry)
		}
		if !role.Valid() {
			return nil, fmt.Errorf("invalid role %q for account %s", role, username)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash for account %s: %w", username, err)
		}
		if _, dup := v.accounts[username]; dup {
			return nil, fmt.Errorf("duplicate account %s", username)
		}
		v.accounts[username] = account{role: role, hash: []byte(hash)}
	}
	if len(v.accounts) == 0 {
		return nil, errors.New("no accounts configured")
	}
	return v, nil
}

func (v *BcryptVerifier) Verify(_ context.Context, username, password string) (*Principal, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	acc, ok := v.accounts[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Username: username, Role: acc.role}, nil
}

// HashPassword returns a bcrypt hash suitable for an account entry.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
