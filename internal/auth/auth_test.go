package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountsAndVerify(t *testing.T) {
	adminHash, err := HashPassword("s3cret")
	require.NoError(t, err)
	readerHash, err := HashPassword("books")
	require.NoError(t, err)

	v, err := ParseAccounts(fmt.Sprintf(" Admin:admin:%s , reader:patron:%s,", adminHash, readerHash))
	require.NoError(t, err)

	ctx := context.Background()

	p, err := v.Verify(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, Principal{Username: "admin", Role: RoleAdmin}, *p)
	assert.True(t, p.IsAdmin())

	// Usernames are case-insensitive.
	p, err = v.Verify(ctx, "READER", "books")
	require.NoError(t, err)
	assert.Equal(t, RolePatron, p.Role)
	assert.False(t, p.IsAdmin())

	_, err = v.Verify(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = v.Verify(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseAccounts_Invalid(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"missing role":   "alice:" + hash,
		"unknown role":   "alice:librarian:" + hash,
		"empty username": ":admin:" + hash,
		"not bcrypt":     "alice:admin:plaintext",
		"duplicate":      fmt.Sprintf("alice:admin:%s,ALICE:patron:%s", hash, hash),
	}
	for name, accounts := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccounts(accounts)
			assert.Error(t, err)
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Username: "ann", Role: RolePatron})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ann", p.Username)
	assert.Equal(t, RolePatron, p.Role)
}
