package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/contextkeys"
	"github.com/budgetup/budgetup/pkg/httputil"
)

// Authenticator resolves a bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.User, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	authenticator Authenticator
	optional      bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		optional:      optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		user, err := m.authenticator.Authenticate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		authCtx := &auth.AuthContext{User: user}
		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	ctx := r.Context().Value(contextkeys.AuthKey)
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
