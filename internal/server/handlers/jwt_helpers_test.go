package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	cfg := JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: 15 * time.Minute,
	}

	token, expiresIn, err := GenerateAccessToken(cfg, "operator")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "offsync", claims.Issuer)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	cfg := JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: -time.Minute,
	}

	token, _, err := GenerateAccessToken(cfg, "operator")
	require.NoError(t, err)

	_, err = ValidateAccessToken(cfg, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	cfg := JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: time.Hour,
	}

	token, _, err := GenerateAccessToken(cfg, "operator")
	require.NoError(t, err)

	other := JWTConfig{Secret: []byte("other-secret")}
	_, err = ValidateAccessToken(other, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongAlgorithm(t *testing.T) {
	cfg := JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: time.Hour,
	}

	// Unsigned token, alg "none".
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{Role: "operator"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAccessToken(cfg, token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	cfg := JWTConfig{Secret: []byte("test-secret")}

	_, err := ValidateAccessToken(cfg, "not.a.token")
	assert.Error(t, err)
}
