package auth

import (
	"testing"
	"time"

	"gigwallet/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Minute, Issuer: "gigwallet"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	token, err := GenerateAccessToken(cfg, 42, "CLIENT")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "CLIENT", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := testJWTConfig()

	other := *cfg
	other.AccessSecret = "another-secret"
	forged, err := GenerateAccessToken(&other, 1, "ADMIN")
	require.NoError(t, err)

	wrongIssuer := *cfg
	wrongIssuer.Issuer = "someone-else"
	foreign, err := GenerateAccessToken(&wrongIssuer, 1, "ADMIN")
	require.NoError(t, err)

	expiredCfg := *cfg
	expiredCfg.AccessExpiry = -time.Minute
	expired, err := GenerateAccessToken(&expiredCfg, 1, "CLIENT")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"wrong issuer": foreign,
		"expired":      expired,
		"alg none":     none,
	} {
		_, err := ParseAccessToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
