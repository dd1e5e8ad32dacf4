package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/tenantdash/internal/domain/tenant"
)

// TenantParam is the chi URL parameter naming the requested tenant.
const TenantParam = "tenantID"

type tenantCtxKey struct{}

// TenantFromPath is middleware that reads the {tenantID} path parameter,
// rejects malformed slugs with 404 and stores the value in the request
// context. The value is only the requested tenant; authorization decides
// whether the caller may act on it.
func TenantFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := chi.URLParam(r, TenantParam)
		if !tenant.ValidID(tid) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		ctx := context.WithValue(r.Context(), tenantCtxKey{}, tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantIDFromContext returns the requested tenant ID stored in ctx, or "".
func TenantIDFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}
