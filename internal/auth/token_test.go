// ABOUTME: Tests for JWT token generation and verification
// ABOUTME: Covers round trips, expiry, wrong secrets, and missing claims

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("svc-calendar-sync", time.Hour)
	require.NoError(t, err)

	subject, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "svc-calendar-sync", subject)
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	token, err := v.Generate("svc", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.True(t, errors.Is(err, ErrExpiredToken))
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewJWTVerifier([]byte("secret-a"))
	verifier := NewJWTVerifier([]byte("secret-b"))

	token, err := signer.Generate("svc", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerify_Garbage(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	_, err := v.Verify("not-a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerify_MissingSubject(t *testing.T) {
	secret := []byte("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	v := NewJWTVerifier(secret)
	_, err = v.Verify(signed)
	assert.True(t, errors.Is(err, ErrMissingClaim))
}
