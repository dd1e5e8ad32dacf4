package access

import (
	"errors"
	"testing"

	"github.com/Strob0t/tenantdash/internal/domain/user"
)

func claimsFor(tenantID string, role user.Role) *user.TokenClaims {
	return &user.TokenClaims{Subject: "u1", Email: "x@" + tenantID + ".com", Role: role, TenantID: tenantID}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		claims     *user.TokenClaims
		reqTenant  string
		required   user.Role
		wantEffect Effect
		wantReason Reason
	}{
		{name: "member same tenant any role", claims: claimsFor("acme", user.RoleMember), reqTenant: "acme", wantEffect: EffectAllow},
		{name: "admin same tenant admin required", claims: claimsFor("acme", user.RoleAdmin), reqTenant: "acme", required: user.RoleAdmin, wantEffect: EffectAllow},
		{name: "member same tenant admin required", claims: claimsFor("globex", user.RoleMember), reqTenant: "globex", required: user.RoleAdmin, wantEffect: EffectDeny, wantReason: ReasonInsufficientRole},
		{name: "admin other tenant", claims: claimsFor("acme", user.RoleAdmin), reqTenant: "globex", wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "admin other tenant admin required", claims: claimsFor("acme", user.RoleAdmin), reqTenant: "globex", required: user.RoleAdmin, wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "member other tenant admin required", claims: claimsFor("acme", user.RoleMember), reqTenant: "globex", required: user.RoleAdmin, wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "empty request tenant", claims: claimsFor("acme", user.RoleAdmin), reqTenant: "", wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "claims without tenant", claims: &user.TokenClaims{Subject: "u1", Role: user.RoleAdmin}, reqTenant: "", wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "nil claims", claims: nil, reqTenant: "acme", wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
		{name: "case sensitive tenant", claims: claimsFor("acme", user.RoleAdmin), reqTenant: "ACME", wantEffect: EffectDeny, wantReason: ReasonTenantMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.claims, tt.reqTenant, tt.required)
			if d.Effect != tt.wantEffect {
				t.Fatalf("effect = %q, want %q", d.Effect, tt.wantEffect)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Allowed() {
				if d.Scope == nil || d.Scope.TenantID != tt.claims.TenantID {
					t.Errorf("scope = %+v, want tenant %q", d.Scope, tt.claims.TenantID)
				}
				if d.Err() != nil {
					t.Errorf("Err() = %v on allow", d.Err())
				}
			} else if d.Scope != nil {
				t.Errorf("deny carries scope %+v", d.Scope)
			}
		})
	}
}

func TestEvaluate_CrossTenantRegardlessOfRole(t *testing.T) {
	for _, role := range []user.Role{user.RoleAdmin, user.RoleMember} {
		for _, required := range []user.Role{"", user.RoleAdmin, user.RoleMember} {
			d := Evaluate(claimsFor("acme", role), "globex", required)
			if d.Reason != ReasonTenantMismatch {
				t.Errorf("role=%s required=%q: reason = %q, want tenant_mismatch", role, required, d.Reason)
			}
		}
	}
}

func TestDecision_Err(t *testing.T) {
	err := Evaluate(claimsFor("acme", user.RoleMember), "acme", user.RoleAdmin).Err()

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *DeniedError, got %T", err)
	}
	if denied.Reason != ReasonInsufficientRole {
		t.Errorf("reason = %q", denied.Reason)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("DeniedError should match ErrForbidden")
	}
}
