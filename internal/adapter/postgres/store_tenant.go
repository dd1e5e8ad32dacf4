package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/tenantdash/internal/domain"
	"github.com/Strob0t/tenantdash/internal/domain/tenant"
)

const tenantColumns = `id, name, theme, features, version, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var (
		t                       tenant.Tenant
		themeJSON, featuresJSON []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &themeJSON, &featuresJSON, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	if err := json.Unmarshal(themeJSON, &t.Theme); err != nil {
		return t, fmt.Errorf("decode theme for tenant %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(featuresJSON, &t.Features); err != nil {
		return t, fmt.Errorf("decode features for tenant %s: %w", t.ID, err)
	}
	return t, nil
}

// --- Tenant CRUD ---

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	themeJSON, err := jsonColumn(req.Theme)
	if err != nil {
		return nil, fmt.Errorf("marshal theme: %w", err)
	}
	featuresJSON, err := jsonColumn(req.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}

	t, err := scanTenant(s.pool.QueryRow(ctx,
		`INSERT INTO tenants (id, name, theme, features) VALUES ($1, $2, $3, $4)
		 RETURNING `+tenantColumns,
		req.ID, req.Name, themeJSON, featuresJSON,
	))
	if err != nil {
		return nil, conflictWrap(err, "create tenant %s", req.ID)
	}
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return &t, nil
}

// UpdateTenantTheme replaces the stored theme if the row is still at
// expectedVersion and returns the new version.
func (s *Store) UpdateTenantTheme(ctx context.Context, id string, theme tenant.Branding, expectedVersion int) (int, error) {
	themeJSON, err := jsonColumn(theme)
	if err != nil {
		return 0, fmt.Errorf("marshal theme: %w", err)
	}

	var newVersion int
	err = s.pool.QueryRow(ctx,
		`UPDATE tenants SET theme = $3, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		id, expectedVersion, themeJSON,
	).Scan(&newVersion)
	if err == nil {
		return newVersion, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("update tenant theme %s: %w", id, err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("update tenant theme %s: %w", id, err)
	}
	if !exists {
		return 0, fmt.Errorf("update tenant theme %s: %w", id, domain.ErrNotFound)
	}
	return 0, fmt.Errorf("update tenant theme %s (version %d): %w", id, expectedVersion, domain.ErrConflict)
}
