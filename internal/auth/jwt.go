package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/travelportal/quote-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingRole  = errors.New("token missing a recognised role")
)

// PortalClaims are the claims issued by the portal identity service
type PortalClaims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 access tokens issued by the portal
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.ClockSkewDuration(),
	}
}

// ValidateToken validates a token and returns the principal it identifies
func (v *JWTValidator) ValidateToken(tokenString string) (*Principal, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: validator has no signing secret", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &PortalClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role, ok := resolveRole(claims)
	if !ok {
		return nil, ErrMissingRole
	}

	return &Principal{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Role:        role,
	}, nil
}

// resolveRole picks the principal role from the token. Admin wins when both are present.
func resolveRole(claims *PortalClaims) (Role, bool) {
	roles := append([]string{claims.Role}, claims.Roles...)
	found := Role("")
	for _, r := range roles {
		switch Role(strings.ToLower(strings.TrimSpace(r))) {
		case RoleAdmin:
			return RoleAdmin, true
		case RoleAgency:
			found = RoleAgency
		}
	}
	return found, found != ""
}

// IssueToken signs a token for the given principal. Used by tooling and tests.
func IssueToken(cfg *config.AuthConfig, p *Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := PortalClaims{
		Name:  p.DisplayName,
		Email: p.Email,
		Role:  string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}
