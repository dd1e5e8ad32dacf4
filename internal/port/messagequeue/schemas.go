package messagequeue

import "time"

// ThemeUpdatedPayload is the schema for tenants.theme.updated messages.
type ThemeUpdatedPayload struct {
	TenantID  string    `json:"tenant_id"`
	Version   int       `json:"version"`
	Keys      []string  `json:"keys"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessDeniedPayload is the schema for audit.access.denied messages.
type AccessDeniedPayload struct {
	Reason        string    `json:"reason"`
	Subject       string    `json:"subject"`
	TokenTenant   string    `json:"token_tenant"`
	RequestTenant string    `json:"request_tenant"`
	RequiredRole  string    `json:"required_role,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LoginAttemptPayload is the schema for audit.auth.login messages.
// Subject is empty for failed attempts.
type LoginAttemptPayload struct {
	TenantID   string    `json:"tenant_id"`
	Subject    string    `json:"subject,omitempty"`
	Success    bool      `json:"success"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
