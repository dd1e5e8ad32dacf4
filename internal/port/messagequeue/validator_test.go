package messagequeue

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		data    string
		errMsg  string
	}{
		{name: "theme updated", subject: SubjectThemeUpdated, data: `{"tenant_id":"acme","version":3,"keys":["--primary-color"]}`},
		{name: "theme updated without tenant", subject: SubjectThemeUpdated, data: `{"version":3}`, errMsg: "tenant_id is required"},
		{name: "theme updated wrong type", subject: SubjectThemeUpdated, data: `{"tenant_id":1}`, errMsg: "schema validation failed"},
		{name: "access denied", subject: SubjectAccessDenied, data: `{"reason":"tenant_mismatch","token_tenant":"acme","request_tenant":"globex"}`},
		{name: "access denied without reason", subject: SubjectAccessDenied, data: `{"token_tenant":"acme"}`, errMsg: "reason is required"},
		{name: "login attempt", subject: SubjectLoginAttempt, data: `{"tenant_id":"acme","success":false}`},
		{name: "login attempt wrong type", subject: SubjectLoginAttempt, data: `{"success":"yes"}`, errMsg: "schema validation failed"},
		{name: "unknown subject", subject: "other.subject", data: `{"anything":true}`},
		{name: "invalid json", subject: SubjectThemeUpdated, data: `{not json`, errMsg: "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.subject, []byte(tt.data))
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}
