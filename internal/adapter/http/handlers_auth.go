package http

import (
	"net/http"

	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/middleware"
)

// Login handles POST /api/{tenantID}/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), middleware.TenantIDFromContext(r.Context()), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/{tenantID}/auth/me and returns the verified claims of
// the presented token, as checked by TenantScope.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	writeJSON(w, http.StatusOK, claims)
}
