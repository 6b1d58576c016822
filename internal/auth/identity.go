// Package auth extracts the caller's identity from tokens issued by the
// external auth provider. Session lifecycle itself lives with the
// provider; this package only verifies and projects claims.
package auth

import (
	"context"

	"github.com/tutorlane/server/internal/apperrors"
	"github.com/tutorlane/server/internal/model"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UID  string
	Role model.Role
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request identity set by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// RequireOwner rejects actions on resources the caller does not own.
func RequireOwner(actor Identity, ownerID string) error {
	if actor.UID != ownerID {
		return apperrors.Authorization("user %s does not own resource %s", actor.UID, ownerID)
	}
	return nil
}

// RequireRole rejects actions outside the caller's role.
func RequireRole(actor Identity, role model.Role) error {
	if actor.Role != role {
		return apperrors.Authorization("user %s is not a %s", actor.UID, role)
	}
	return nil
}
