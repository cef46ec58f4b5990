package auth

import (
	"context"
)

// Role is the coarse permission level of a principal
type Role string

const (
	RoleAgency Role = "agency"
	RoleAdmin  Role = "admin"
)

// IsValid checks if the Role is a valid enum value
func (r Role) IsValid() bool {
	return r == RoleAgency || r == RoleAdmin
}

// Principal is the authenticated caller of an operation.
// It is passed explicitly to every service call that needs an identity.
type Principal struct {
	UserID      string
	DisplayName string
	Email       string
	Role        Role
}

// IsAdmin reports whether the principal acts for the operator back office
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IsAgency reports whether the principal acts for an agency
func (p *Principal) IsAgency() bool {
	return p != nil && p.Role == RoleAgency
}

// HasAnyRole checks if the principal has any of the specified roles
func (p *Principal) HasAnyRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal from the context
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
