package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonata/pkg/models"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, VerifyPassword(hash, "correct horse battery staple"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "anything"))
}

func TestIssueAndVerifyToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	user := models.User{ID: 7, Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}

	token, err := issuer.IssueToken(user)
	require.NoError(t, err)

	claims, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "sonata", claims.Issuer)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), time.Hour)
	token, err := issuer.IssueToken(models.User{ID: 1})
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("secret-b"), time.Hour)
	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), -time.Minute)
	token, err := issuer.IssueToken(models.User{ID: 1})
	require.NoError(t, err)

	_, err = issuer.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)

	_, err := issuer.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
