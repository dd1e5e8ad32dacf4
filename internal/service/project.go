// Package service implements business logic on top of ports.
package service

import (
	"context"

	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/domain/project"
	"github.com/Strob0t/tenantdash/internal/port/database"
)

// ProjectService handles project business logic.
type ProjectService struct {
	store database.Store
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store database.Store) *ProjectService {
	return &ProjectService{store: store}
}

// List returns the projects of the scope's tenant, oldest first.
func (s *ProjectService) List(ctx context.Context, scope *access.Scope) ([]project.Project, error) {
	if scope == nil || scope.TenantID == "" {
		return nil, &access.DeniedError{Reason: access.ReasonTenantMismatch}
	}
	projects, err := s.store.ListProjects(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return projects, nil
}

// Create creates a new project after validating the request.
func (s *ProjectService) Create(ctx context.Context, req *project.CreateRequest) (*project.Project, error) {
	if err := project.ValidateCreateRequest(req); err != nil {
		return nil, err
	}
	return s.store.CreateProject(ctx, *req)
}
