package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation
// (future-proof for new message types).
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectThemeUpdated:
		var p ThemeUpdatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.TenantID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("tenant_id is required"))
		}
	case SubjectAccessDenied:
		var p AccessDeniedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Reason == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("reason is required"))
		}
	case SubjectLoginAttempt:
		var p LoginAttemptPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}
