// Package access implements the tenant-scope guard: the pure decision of
// whether a verified identity may act on a tenant's resources.
package access

import (
	"errors"
	"fmt"

	"github.com/Strob0t/tenantdash/internal/domain/user"
)

// Effect is the outcome of an authorization check.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Reason explains a DENY decision. Reasons are logged and audited but never
// returned to the caller.
type Reason string

const (
	ReasonTenantMismatch   Reason = "tenant_mismatch"
	ReasonInsufficientRole Reason = "insufficient_role"
)

// ErrForbidden is matched by every DeniedError.
var ErrForbidden = errors.New("forbidden")

// Scope is the authorization context handed to data operations after an
// ALLOW decision. TenantID always comes from the verified token.
type Scope struct {
	TenantID string    `json:"tenant_id"`
	Subject  string    `json:"sub"`
	Email    string    `json:"email"`
	Role     user.Role `json:"role"`

	// Claims are the verified token claims the scope was derived from.
	Claims *user.TokenClaims `json:"-"`
}

// Decision is the result of Evaluate. It is never persisted.
type Decision struct {
	Effect Effect `json:"effect"`
	Reason Reason `json:"reason,omitempty"`
	Scope  *Scope `json:"scope,omitempty"`
}

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Err returns nil for ALLOW and a *DeniedError for DENY.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// DeniedError is returned when the guard denies a request.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrForbidden }

func deny(r Reason) Decision {
	return Decision{Effect: EffectDeny, Reason: r}
}

// Evaluate decides whether claims may access resources of requestTenantID.
// An empty requiredRole means any authenticated role is sufficient.
//
// Tenant binding is checked before role, so an admin of one tenant is denied
// with ReasonTenantMismatch on every other tenant.
func Evaluate(claims *user.TokenClaims, requestTenantID string, requiredRole user.Role) Decision {
	if claims == nil || claims.TenantID == "" || claims.TenantID != requestTenantID {
		return deny(ReasonTenantMismatch)
	}
	if requiredRole != "" && claims.Role != requiredRole {
		return deny(ReasonInsufficientRole)
	}
	return Decision{
		Effect: EffectAllow,
		Scope: &Scope{
			TenantID: claims.TenantID,
			Subject:  claims.Subject,
			Email:    claims.Email,
			Role:     claims.Role,
			Claims:   claims,
		},
	}
}
