package project

import (
	"fmt"
	"unicode"

	"github.com/Strob0t/tenantdash/internal/domain"
)

// ValidateCreateRequest validates the fields of a project creation request.
// An empty status defaults to Active.
func ValidateCreateRequest(req *CreateRequest) error {
	if req.TenantID == "" {
		return fmt.Errorf("tenant_id is required: %w", domain.ErrValidation)
	}
	if req.Name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(req.Name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	for _, r := range req.Name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters: %w", domain.ErrValidation)
		}
	}

	if req.Status == "" {
		req.Status = StatusActive
	}
	if !ValidStatuses[req.Status] {
		return fmt.Errorf("unknown status %q: %w", req.Status, domain.ErrValidation)
	}
	return nil
}
