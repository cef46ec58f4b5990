package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/config"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Issuer:   "agency-portal",
		Audience: "quote-api",
		Secret:   "test-signing-key",
	}
}

func TestJWTValidator_RoundTrip(t *testing.T) {
	cfg := testAuthConfig()
	token, err := auth.IssueToken(cfg, &auth.Principal{
		UserID:      "user-42",
		DisplayName: "Giulia",
		Email:       "giulia@agency.test",
		Role:        auth.RoleAgency,
	}, time.Hour)
	require.NoError(t, err)

	principal, err := auth.NewJWTValidator(cfg).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", principal.UserID)
	assert.Equal(t, "Giulia", principal.DisplayName)
	assert.Equal(t, auth.RoleAgency, principal.Role)
	assert.True(t, principal.IsAgency())
	assert.False(t, principal.IsAdmin())
}

func TestJWTValidator_Rejects(t *testing.T) {
	cfg := testAuthConfig()
	validator := auth.NewJWTValidator(cfg)

	t.Run("expired", func(t *testing.T) {
		token, err := auth.IssueToken(cfg, &auth.Principal{UserID: "u", Role: auth.RoleAgency}, -time.Hour)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := testAuthConfig()
		other.Secret = "another-key"
		token, err := auth.IssueToken(other, &auth.Principal{UserID: "u", Role: auth.RoleAgency}, time.Hour)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := testAuthConfig()
		other.Audience = "another-api"
		token, err := auth.IssueToken(other, &auth.Principal{UserID: "u", Role: auth.RoleAgency}, time.Hour)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := auth.IssueToken(cfg, &auth.Principal{UserID: "u", Role: auth.Role("guest")}, time.Hour)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrMissingRole)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := auth.IssueToken(cfg, &auth.Principal{Role: auth.RoleAgency}, time.Hour)
		require.NoError(t, err)
		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub":  "u",
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = validator.ValidateToken(signed)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestJWTValidator_AdminRoleWins(t *testing.T) {
	cfg := testAuthConfig()
	claims := auth.PortalClaims{
		Role:  "agency",
		Roles: []string{"Admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-1",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	principal, err := auth.NewJWTValidator(cfg).ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, principal.Role)
}
