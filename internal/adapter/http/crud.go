package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/middleware"
)

// ---------------------------------------------------------------------------
// Generic handler factories
// ---------------------------------------------------------------------------

// handleScopedList creates a handler that lists resources visible to the
// authorized scope and returns JSON. Must be mounted behind TenantScope.
func handleScopedList[T any](listFn func(ctx context.Context, scope *access.Scope) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listFn(r.Context(), middleware.ScopeFromContext(r.Context()))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}
