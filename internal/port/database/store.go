// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/tenantdash/internal/domain/project"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/domain/user"
)

// Store is the port interface for database operations.
//
// Lookups return domain.ErrNotFound for missing rows. UpdateTenantTheme
// returns domain.ErrConflict when the stored version differs from
// expectedVersion.
type Store interface {
	// Tenants
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	UpdateTenantTheme(ctx context.Context, id string, theme tenant.Branding, expectedVersion int) (int, error)

	// Users
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
	ListUsers(ctx context.Context, tenantID string) ([]user.User, error)

	// Projects
	ListProjects(ctx context.Context, tenantID string) ([]project.Project, error)
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)

	// ResetDemoData removes all tenants, users and projects.
	ResetDemoData(ctx context.Context) error

	// Ping checks connectivity for readiness checks.
	Ping(ctx context.Context) error
}
