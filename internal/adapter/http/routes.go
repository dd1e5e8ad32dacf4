package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. A nil limiter
// leaves the login route unthrottled.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	// Public branding, read by the login page before any token exists.
	r.Get("/api/settings/{tenantID}", h.GetSettings)

	anyRole := middleware.TenantScope(h.Access, "", writeDomainError)
	adminOnly := middleware.TenantScope(h.Access, user.RoleAdmin, writeDomainError)

	r.Route("/api/{tenantID}", func(r chi.Router) {
		r.Use(middleware.TenantFromPath)

		if limiter != nil {
			r.With(limiter.Handler).Post("/auth/login", h.Login)
		} else {
			r.Post("/auth/login", h.Login)
		}

		r.With(anyRole).Get("/auth/me", h.Me)
		r.With(anyRole).Get("/projects", handleScopedList(h.Projects.List))
		r.With(adminOnly).Put("/admin/theme", h.UpdateTheme)
	})
}
