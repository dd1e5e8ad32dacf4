// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Tenant represents an isolated organization served by the dashboard.
// ID is the stable slug used in URLs and tokens and never changes.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Theme     Branding  `json:"theme"`
	Features  Features  `json:"features"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Features holds named boolean switches for a tenant.
type Features map[string]bool

// Settings is the public, unauthenticated view of a tenant.
// It must never carry account or credential data.
type Settings struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Theme    Branding `json:"theme"`
	Features Features `json:"features"`
}

// Settings returns the public projection of t.
func (t *Tenant) Settings() Settings {
	features := t.Features
	if features == nil {
		features = Features{}
	}
	return Settings{
		ID:       t.ID,
		Name:     t.Name,
		Theme:    t.Theme.Clone(),
		Features: features,
	}
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Theme    Branding `json:"theme"`
	Features Features `json:"features"`
}

var idRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$`)

// ValidID reports whether id is a well-formed tenant slug.
func ValidID(id string) bool {
	return idRegex.MatchString(id)
}

// Validate checks the CreateRequest.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("tenant name is required")
	}
	if !ValidID(r.ID) {
		return fmt.Errorf("invalid tenant id %q: must be 2-64 lowercase alphanumeric characters or hyphens", r.ID)
	}
	return r.Theme.Validate()
}
