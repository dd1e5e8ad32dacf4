package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Strob0t/tenantdash/internal/domain/project"
)

const projectColumns = `id, tenant_id, name, status, created_at`

func scanProject(row scannable) (project.Project, error) {
	var p project.Project
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Status, &p.CreatedAt)
	return p, err
}

// ListProjects returns the projects of exactly one tenant, oldest first.
func (s *Store) ListProjects(ctx context.Context, tenantID string) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+`
		 FROM projects WHERE tenant_id = $1 ORDER BY created_at ASC, id ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return orEmpty(projects), rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	p, err := scanProject(s.pool.QueryRow(ctx,
		`INSERT INTO projects (id, tenant_id, name, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+projectColumns,
		uuid.NewString(), req.TenantID, req.Name, req.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}
