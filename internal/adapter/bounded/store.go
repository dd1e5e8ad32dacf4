// Package bounded decorates a database.Store so every call runs under a
// deadline and behind a circuit breaker.
package bounded

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/tenantdash/internal/domain"
	"github.com/Strob0t/tenantdash/internal/domain/project"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/port/database"
	"github.com/Strob0t/tenantdash/internal/resilience"
)

// Store wraps a database.Store. Timeouts, an open breaker and transport
// failures surface as domain.ErrStorageUnavailable; ErrNotFound, ErrConflict
// and ErrValidation pass through unchanged and do not count against the breaker.
type Store struct {
	inner   database.Store
	timeout time.Duration
	breaker *resilience.Breaker
}

var _ database.Store = (*Store)(nil)

// New wraps inner. A nil breaker creates one that opens after five
// consecutive failures for thirty seconds.
func New(inner database.Store, timeout time.Duration, breaker *resilience.Breaker) *Store {
	if breaker == nil {
		breaker = NewBreaker(5, 30*time.Second)
	}
	return &Store{inner: inner, timeout: timeout, breaker: breaker}
}

// NewBreaker builds a breaker that ignores domain outcomes and caller cancellation.
func NewBreaker(maxFailures int, openFor time.Duration) *resilience.Breaker {
	return resilience.NewBreaker(maxFailures, openFor, resilience.WithFailurePredicate(isFailure))
}

// BreakerState reports the breaker state for readiness checks.
func (s *Store) BreakerState() string {
	return s.breaker.State()
}

func isFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func call[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := s.breaker.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		v, err := fn(cctx)
		if err != nil {
			// A deadline we imposed is a storage timeout, not caller cancellation.
			if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
			}
			return err
		}
		out = v
		return nil
	})
	if err == nil {
		return out, nil
	}

	var zero T
	switch {
	case !isFailure(err):
		return zero, err
	case errors.Is(err, resilience.ErrCircuitOpen):
		return zero, fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	default:
		return zero, fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
	}
}

func exec(ctx context.Context, s *Store, op string, fn func(context.Context) error) error {
	_, err := call(ctx, s, op, func(c context.Context) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	return err
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	return call(ctx, s, "get tenant", func(c context.Context) (*tenant.Tenant, error) {
		return s.inner.GetTenant(c, id)
	})
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	return call(ctx, s, "create tenant", func(c context.Context) (*tenant.Tenant, error) {
		return s.inner.CreateTenant(c, req)
	})
}

func (s *Store) UpdateTenantTheme(ctx context.Context, id string, theme tenant.Branding, expectedVersion int) (int, error) {
	return call(ctx, s, "update tenant theme", func(c context.Context) (int, error) {
		return s.inner.UpdateTenantTheme(c, id, theme, expectedVersion)
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return call(ctx, s, "get user by email", func(c context.Context) (*user.User, error) {
		return s.inner.GetUserByEmail(c, email)
	})
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	return exec(ctx, s, "create user", func(c context.Context) error {
		return s.inner.CreateUser(c, u)
	})
}

func (s *Store) ListUsers(ctx context.Context, tenantID string) ([]user.User, error) {
	return call(ctx, s, "list users", func(c context.Context) ([]user.User, error) {
		return s.inner.ListUsers(c, tenantID)
	})
}

func (s *Store) ListProjects(ctx context.Context, tenantID string) ([]project.Project, error) {
	return call(ctx, s, "list projects", func(c context.Context) ([]project.Project, error) {
		return s.inner.ListProjects(c, tenantID)
	})
}

func (s *Store) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	return call(ctx, s, "create project", func(c context.Context) (*project.Project, error) {
		return s.inner.CreateProject(c, req)
	})
}

func (s *Store) ResetDemoData(ctx context.Context) error {
	return exec(ctx, s, "reset demo data", s.inner.ResetDemoData)
}

func (s *Store) Ping(ctx context.Context) error {
	return exec(ctx, s, "ping", s.inner.Ping)
}
