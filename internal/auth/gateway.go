package auth

import (
	"fmt"
	"slices"
	"strings"
)

const bearerPrefix = "bearer "

// Check is one authorization step evaluated against an authenticated caller.
type Check func(IdentityContext) error

// Gateway enforces authentication and authorization at request boundaries.
// Transports call Gate with the raw Authorization header and the checks the
// entry point needs; nothing downstream runs unless Gate returns nil error.
type Gateway struct {
	tokens   *TokenService
	registry *Registry
}

func NewGateway(tokens *TokenService, registry *Registry) *Gateway {
	return &Gateway{tokens: tokens, registry: registry}
}

// Registry exposes the permission registry the gateway decides with.
func (g *Gateway) Registry() *Registry { return g.registry }

// Authenticate parses "Bearer <token>" and verifies it as an access token.
func (g *Gateway) Authenticate(header string) (IdentityContext, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return IdentityContext{}, err
	}
	claims, err := g.tokens.VerifyAs(token, TokenAccess)
	if err != nil {
		return IdentityContext{}, err
	}
	return IdentityContext{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Gate authenticates and then runs checks in order, stopping at the first failure.
func (g *Gateway) Gate(header string, checks ...Check) (IdentityContext, error) {
	id, err := g.Authenticate(header)
	if err != nil {
		return IdentityContext{}, err
	}
	if err := g.Authorize(id, checks...); err != nil {
		return IdentityContext{}, err
	}
	return id, nil
}

// Authorize runs checks against an already authenticated caller.
func (g *Gateway) Authorize(id IdentityContext, checks ...Check) error {
	for _, check := range checks {
		if err := check(id); err != nil {
			return err
		}
	}
	return nil
}

// RequirePermission fails with ErrForbidden unless id's role grants perm.
func (g *Gateway) RequirePermission(id IdentityContext, perm Permission) error {
	if !g.registry.HasPermission(id.Role, perm) {
		return fmt.Errorf("%w: %s required", ErrForbidden, perm)
	}
	return nil
}

// RequireAnyPermission passes when any of perms is granted.
func (g *Gateway) RequireAnyPermission(id IdentityContext, perms ...Permission) error {
	for _, p := range perms {
		if g.registry.HasPermission(id.Role, p) {
			return nil
		}
	}
	return fmt.Errorf("%w: one of %v required", ErrForbidden, perms)
}

// RequireRole fails with ErrForbidden unless id.Role is one of roles.
func (g *Gateway) RequireRole(id IdentityContext, roles ...Role) error {
	if !slices.Contains(roles, id.Role) {
		return fmt.Errorf("%w: role %q not allowed", ErrForbidden, id.Role)
	}
	return nil
}

func (g *Gateway) Permission(perm Permission) Check {
	return func(id IdentityContext) error { return g.RequirePermission(id, perm) }
}

func (g *Gateway) AnyPermission(perms ...Permission) Check {
	return func(id IdentityContext) error { return g.RequireAnyPermission(id, perms...) }
}

func (g *Gateway) Role(roles ...Role) Check {
	return func(id IdentityContext) error { return g.RequireRole(id, roles...) }
}

// OwnsUserData allows the caller through when CanAccessUserData holds for target.
func OwnsUserData(target int64) Check {
	return func(id IdentityContext) error {
		if !CanAccessUserData(id.Role, target, id.UserID) {
			return fmt.Errorf("%w: cannot access user %d", ErrForbidden, target)
		}
		return nil
	}
}

// ExtractBearer returns the token from a "Bearer <token>" header. The scheme
// is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("%w: invalid authorization scheme", ErrMissingToken)
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// ProjectRef is the ownership data needed to authorize a project change.
type ProjectRef struct {
	ID         int64
	CreatorID  int64
	AssigneeID int64
}

// ModifiesProject allows the caller through when CanModifyProject holds for p.
func ModifiesProject(p ProjectRef) Check {
	return func(id IdentityContext) error {
		if !CanModifyProject(id.Role, id.UserID, p.CreatorID, p.AssigneeID) {
			return fmt.Errorf("%w: cannot modify project %d", ErrForbidden, p.ID)
		}
		return nil
	}
}
