package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/tenantdash/internal/service"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// breakerReporter is implemented by stores guarded by a circuit breaker.
type breakerReporter interface {
	BreakerState() string
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth     *service.AuthService
	Access   *service.AccessService
	Tenants  *service.TenantService
	Projects *service.ProjectService
	DB       Pinger
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. It pings the database and, when the
// store sits behind a circuit breaker, reports the breaker state.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	body := map[string]string{"status": "ok", "postgres": "up"}

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			code = http.StatusServiceUnavailable
			body["status"], body["postgres"] = "unavailable", "down"
		}
	}
	if br, ok := h.DB.(breakerReporter); ok {
		body["breaker"] = br.BreakerState()
	}
	writeJSON(w, code, body)
}
