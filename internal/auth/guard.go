package auth

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/model"
)

// Verifier confirms signature and expiry and returns the decoded claim.
type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// Identity is what the guard hands to business logic.
type Identity struct {
	ID    string
	Email string
	Role  model.Role
}

type Guard struct {
	Verifier Verifier
}

func NewGuard(v Verifier) *Guard { return &Guard{Verifier: v} }

// Check authenticates an Authorization header value and, when roles is
// non-empty, requires the caller's role to be one of them.
func (g *Guard) Check(header string, roles ...model.Role) (Identity, error) {
	if header == "" {
		return Identity{}, apperr.New(apperr.Unauthenticated, "No token provided")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return Identity{}, apperr.New(apperr.Unauthenticated, "Invalid token format")
	}

	claims, err := g.Verifier.Verify(token)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.Unauthenticated, "Invalid token", err)
	}
	if claims.ID == "" || !claims.Role.Valid() {
		return Identity{}, apperr.New(apperr.Unauthenticated, "Invalid role in token")
	}

	id := Identity{ID: claims.ID, Email: claims.Email, Role: claims.Role}
	if len(roles) == 0 {
		return id, nil
	}
	for _, r := range roles {
		if r == id.Role {
			return id, nil
		}
	}
	return Identity{}, apperr.New(apperr.Forbidden, "Access denied: Insufficient permissions")
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
