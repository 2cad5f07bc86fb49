package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	return New("test-secret", time.Hour, "Admin@Example.com", hash)
}

func TestLoginIssuesValidToken(t *testing.T) {
	a := newTestAuth(t)

	token, err := a.Login("admin@example.com", "correct horse")
	require.NoError(t, err)

	claims, err := a.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuth(t)

	_, err := a.Login("admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.Login("someone@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = New("s", time.Hour, "", "").Login("admin@example.com", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateJWTRejectsForeignSecret(t *testing.T) {
	token, err := New("other-secret", time.Hour, "", "").GenerateJWT("a@b.c", "admin")
	require.NoError(t, err)

	_, err = newTestAuth(t).ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	a := New("test-secret", time.Nanosecond, "", "")
	token, err := a.GenerateJWT("a@b.c", "admin")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = a.ValidateJWT(token)
	assert.Error(t, err)
}
