package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "zmartboard-test"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1", Role: "USER"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "USER", claims.Role)
	require.Equal(t, "zmartboard-test", claims.Issuer)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Minute,
		Clock:          func() time.Time { return clock() },
	})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(2 * time.Minute) }

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsForeignIssuer(t *testing.T) {
	issuerA, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "service-a"})
	require.NoError(t, err)
	issuerB, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "service-b"})
	require.NoError(t, err)

	token, err := issuerA.GenerateAccessToken(AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	_, err = issuerB.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}
