package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/tenantdash/internal/domain/project"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/port/database"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "password123" //nolint:gosec // public demo credential

// DemoTenants are the two demo organizations.
var DemoTenants = []tenant.CreateRequest{
	{
		ID:   "acme",
		Name: "Acme Corp",
		Theme: tenant.Branding{
			PrimaryColor:     "#0ea5e9",
			SecondaryColor:   "#6366f1",
			BackgroundColor:  "#f3f4f6",
			SidebarColor:     "#1f2937",
			SidebarTextColor: "#e5e7eb",
			TextColor:        "#111827",
			LogoText:         "ACME",
		},
		Features: tenant.Features{"analytics": true, "userManagement": false},
	},
	{
		ID:   "globex",
		Name: "Globex Industries",
		Theme: tenant.Branding{
			PrimaryColor:     "#10b981",
			SecondaryColor:   "#f97316",
			BackgroundColor:  "#f9fafb",
			SidebarColor:     "#ffffff",
			SidebarTextColor: "#374151",
			TextColor:        "#374151",
			LogoText:         "GLOBEX",
		},
		Features: tenant.Features{"analytics": true, "userManagement": true},
	},
}

// DemoUsers are the seeded accounts. All use DemoPassword.
var DemoUsers = []user.CreateRequest{
	{TenantID: "acme", Name: "Alice (Acme)", Email: "acme-user@acme.com", Role: user.RoleAdmin},
	{TenantID: "acme", Name: "Dana (Acme)", Email: "acme-admin@acme.com", Role: user.RoleAdmin},
	{TenantID: "globex", Name: "Bob (Globex)", Email: "globex-user@globex.com", Role: user.RoleAdmin},
	{TenantID: "globex", Name: "Charlie (Globex)", Email: "globex-member@globex.com", Role: user.RoleMember},
}

// DemoProjects are the seeded projects, in creation order.
var DemoProjects = []project.CreateRequest{
	{TenantID: "acme", Name: "Acme Project Alpha", Status: project.StatusActive},
	{TenantID: "acme", Name: "Acme Project Beta", Status: project.StatusPending},
	{TenantID: "globex", Name: "Globex Project Phoenix", Status: project.StatusActive},
}

// SeedDemoData wipes all tenants, accounts and projects and recreates the
// demo data set through the services, so every record passes the same
// validation as one created at runtime.
func SeedDemoData(ctx context.Context, store database.Store, tenants *TenantService, projects *ProjectService, auth *AuthService) error {
	if err := store.ResetDemoData(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	for _, req := range DemoTenants {
		if _, err := tenants.Create(ctx, req); err != nil {
			return fmt.Errorf("create tenant %s: %w", req.ID, err)
		}
	}

	for _, u := range DemoUsers {
		req := u
		req.Password = DemoPassword
		if _, err := auth.Register(ctx, &req); err != nil {
			return fmt.Errorf("create user %s: %w", req.Email, err)
		}
	}

	for _, req := range DemoProjects {
		if _, err := projects.Create(ctx, &req); err != nil {
			return fmt.Errorf("create project %s: %w", req.Name, err)
		}
	}

	slog.InfoContext(ctx, "demo data seeded",
		"tenants", len(DemoTenants), "users", len(DemoUsers), "projects", len(DemoProjects))
	return nil
}
