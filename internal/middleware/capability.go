package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/housesplit/internal/guard"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// DeleteAllowedKey marks a request whose delete capability was verified.
const DeleteAllowedKey contextKey = "delete_allowed"

// DeleteAllowed reports whether the request carried a valid delete capability.
func DeleteAllowed(ctx context.Context) bool {
	ok, _ := ctx.Value(DeleteAllowedKey).(bool)
	return ok
}

// DeleteCapability returns an interceptor that checks an
// "Authorization: Bearer <capability>" header on the given procedures.
//
// Requests without the header pass through unmarked so the handler can fall
// back to a secret in the request body. A header that is present but invalid
// is rejected with PermissionDenied.
func DeleteCapability(g *guard.Guard, procedures ...string) connect.UnaryInterceptorFunc {
	guarded := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		guarded[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !guarded[req.Spec().Procedure] {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return next(ctx, req)
			}

			// Parse Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodePermissionDenied, guard.ErrInvalidCapability)
			}

			if err := g.Authorize(parts[1]); err != nil {
				return nil, connect.NewError(connect.CodePermissionDenied, err)
			}

			ctx = context.WithValue(ctx, DeleteAllowedKey, true)
			return next(ctx, req)
		}
	}
}
