package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/middleware"
)

// GetSettings handles GET /api/settings/{tenantID}
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Tenants.GetSettings(r.Context(), chi.URLParam(r, middleware.TenantParam))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateTheme handles PUT /api/{tenantID}/admin/theme. The body is a partial
// theme; the response is the full merged theme.
func (h *Handlers) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	patch, err := tenant.ParseBrandingPatch(body)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	theme, err := h.Tenants.UpdateTheme(r.Context(), middleware.ScopeFromContext(r.Context()), patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}
