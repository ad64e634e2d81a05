package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestSignAndVerify(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "super-secret", Issuer: "sessiongate", Clock: now})
	require.NoError(t, err)

	token, err := svc.Sign(TokenClaims{
		Subject:   "alice",
		IssuedAt:  current,
		ExpiresAt: current.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)

	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "sessiongate", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestSignProducesDistinctTokensWithinOneSecond(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{Secret: "s", Clock: func() time.Time { return current }})
	require.NoError(t, err)

	input := TokenClaims{Subject: "alice", Issuer: "x", IssuedAt: current, ExpiresAt: current.Add(time.Minute)}
	first, err := svc.Sign(input)
	require.NoError(t, err)
	second, err := svc.Sign(input)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSignRequiresSubject(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "s"})
	require.NoError(t, err)
	_, err = svc.Sign(TokenClaims{})
	require.Error(t, err)
}

func TestVerifyInvalidSignature(t *testing.T) {
	current := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	issuer, err := NewJWTService(JWTConfig{Secret: "issuer-secret", Clock: now})
	require.NoError(t, err)

	token, err := issuer.Sign(TokenClaims{Subject: "alice", IssuedAt: current, ExpiresAt: current.Add(time.Minute)})
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestVerifyExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: clock})
	require.NoError(t, err)

	token, err := svc.Sign(TokenClaims{Subject: "alice", IssuedAt: current, ExpiresAt: current.Add(time.Minute)})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = svc.Verify(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerifyZeroLifetimeIsExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	svc, err := NewJWTService(JWTConfig{Secret: "secret", Clock: func() time.Time { return current }})
	require.NoError(t, err)

	token, err := svc.Sign(TokenClaims{Subject: "alice", IssuedAt: current, ExpiresAt: current})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)

	_, err = svc.Verify("")
	require.Error(t, err)
	_, err = svc.Verify("not-a-real-token")
	require.Error(t, err)
}
