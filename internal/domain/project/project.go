// Package project defines the Project domain entity.
package project

import "time"

// Status is the lifecycle state of a project.
type Status string

const (
	StatusActive   Status = "Active"
	StatusPending  Status = "Pending"
	StatusArchived Status = "Archived"
)

// ValidStatuses is the set of all valid project statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:   true,
	StatusPending:  true,
	StatusArchived: true,
}

// Project is a unit of tenant data shown on the dashboard.
type Project struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest holds the fields needed to create a new project.
type CreateRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
}
