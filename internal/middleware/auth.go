package middleware

import (
	"context"
	"net/http"

	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/logger"
)

type scopeCtxKey struct{}

// Authorizer validates a bearer header against a tenant and role.
// Implemented by service.AccessService.
type Authorizer interface {
	Authorize(ctx context.Context, authHeader, requestTenantID string, requiredRole user.Role) (*access.Scope, error)
}

// ErrorWriter renders an authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// TenantScope returns middleware that admits a request only when its bearer
// token is valid and the guard allows it on the tenant from the path
// (see TenantFromPath). An empty requiredRole accepts any role.
//
// On success the Scope is stored in the context. Downstream handlers must
// read the tenant from ScopeFromContext, not from the path.
func TenantScope(authz Authorizer, requiredRole user.Role, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := authz.Authorize(r.Context(), r.Header.Get("Authorization"), TenantIDFromContext(r.Context()), requiredRole)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := logger.WithActor(WithScope(r.Context(), scope), scope.TenantID, scope.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithScope returns ctx carrying scope.
func WithScope(ctx context.Context, scope *access.Scope) context.Context {
	return context.WithValue(ctx, scopeCtxKey{}, scope)
}

// ClaimsFromContext returns the verified token claims behind the scope set
// by TenantScope, or nil. Handlers use it instead of re-validating the
// Authorization header.
func ClaimsFromContext(ctx context.Context) *user.TokenClaims {
	if s := ScopeFromContext(ctx); s != nil {
		return s.Claims
	}
	return nil
}

// ScopeFromContext returns the authorization scope set by TenantScope, or nil.
func ScopeFromContext(ctx context.Context) *access.Scope {
	s, _ := ctx.Value(scopeCtxKey{}).(*access.Scope)
	return s
}
