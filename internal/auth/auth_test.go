package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatroomgo/internal/core"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	j := NewJWT("test-secret-0123456789", time.Hour)

	token, err := j.Issue(core.Identity{ID: "u1", Name: "Alice"})
	require.NoError(t, err)

	ident, err := j.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", ident.ID)
	require.Equal(t, "Alice", ident.Name)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewJWT("secret-one-0123456789", time.Hour)
	verifier := NewJWT("secret-two-0123456789", time.Hour)

	token, err := issuer.Issue(core.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	j := NewJWT("test-secret-0123456789", -time.Minute)

	token, err := j.Issue(core.Identity{ID: "u1"})
	require.NoError(t, err)

	_, err = j.Verify(token)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	j := NewJWT("test-secret-0123456789", time.Hour)

	for _, credential := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := j.Verify(credential)
		require.ErrorIs(t, err, ErrInvalidCredential)
	}
}
