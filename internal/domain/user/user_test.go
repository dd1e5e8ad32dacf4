package user

import "testing"

func TestCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{name: "valid", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "12345678", Role: RoleAdmin, TenantID: "acme"}},
		{name: "missing email", req: CreateRequest{Name: "A", Password: "12345678", Role: RoleAdmin, TenantID: "acme"}, wantErr: "email is required"},
		{name: "invalid email", req: CreateRequest{Email: "bad", Name: "A", Password: "12345678", Role: RoleAdmin, TenantID: "acme"}, wantErr: "invalid email format"},
		{name: "missing name", req: CreateRequest{Email: "a@b.com", Password: "12345678", Role: RoleAdmin, TenantID: "acme"}, wantErr: "name is required"},
		{name: "missing password", req: CreateRequest{Email: "a@b.com", Name: "A", Role: RoleAdmin, TenantID: "acme"}, wantErr: "password is required"},
		{name: "short password", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "short", Role: RoleAdmin, TenantID: "acme"}, wantErr: "password must be at least 8 characters"},
		{name: "invalid role", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "12345678", Role: "superadmin", TenantID: "acme"}, wantErr: "invalid role: must be admin or member"},
		{name: "missing tenant", req: CreateRequest{Email: "a@b.com", Name: "A", Password: "12345678", Role: RoleMember}, wantErr: "tenant_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if got := err.Error(); got != tt.wantErr {
				t.Fatalf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     LoginRequest
		wantErr string
	}{
		{name: "valid", req: LoginRequest{Email: "a@b.com", Password: "secret"}},
		{name: "missing email", req: LoginRequest{Password: "secret"}, wantErr: "email is required"},
		{name: "missing password", req: LoginRequest{Email: "a@b.com"}, wantErr: "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if got := err.Error(); got != tt.wantErr {
				t.Fatalf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestUser_PublicOmitsHash(t *testing.T) {
	u := &User{ID: "u1", Email: "a@acme.com", Name: "Alice", PasswordHash: "$2a$secret", Role: RoleAdmin, TenantID: "acme"}
	pv := u.Public()
	if pv.ID != "u1" || pv.Email != "a@acme.com" || pv.Role != RoleAdmin || pv.TenantID != "acme" {
		t.Fatalf("unexpected public view: %+v", pv)
	}
}
