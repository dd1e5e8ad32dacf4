package service

import (
	"context"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/tenantdash/internal/adapter/otel"
	"github.com/Strob0t/tenantdash/internal/domain/access"
	"github.com/Strob0t/tenantdash/internal/domain/user"
	"github.com/Strob0t/tenantdash/internal/logger"
	"github.com/Strob0t/tenantdash/internal/port/messagequeue"
)

// AccessService validates tokens and applies the tenant-scope guard.
type AccessService struct {
	tokens  *Tokens
	events  *EventPublisher
	metrics *cfotel.Metrics
}

// NewAccessService creates an AccessService.
func NewAccessService(tokens *Tokens, events *EventPublisher) *AccessService {
	return &AccessService{tokens: tokens, events: events}
}

// SetMetrics attaches metric instruments. nil disables recording.
func (s *AccessService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Authorize validates the Authorization header value and decides whether
// its bearer may act on requestTenantID with requiredRole. An empty
// requiredRole accepts any role.
//
// Token failures return user.ErrMissingToken, user.ErrInvalidToken or
// user.ErrExpiredToken. A denial returns *access.DeniedError; the reason is
// logged and audited but must not be shown to the caller.
func (s *AccessService) Authorize(ctx context.Context, authHeader, requestTenantID string, requiredRole user.Role) (*access.Scope, error) {
	_, scope, err := s.authorize(ctx, authHeader, requestTenantID, requiredRole)
	return scope, err
}

func (s *AccessService) authorize(ctx context.Context, authHeader, requestTenantID string, requiredRole user.Role) (*user.TokenClaims, *access.Scope, error) {
	ctx, span := cfotel.StartAuthorizeSpan(ctx, requestTenantID, string(requiredRole))
	defer span.End()

	claims, err := s.tokens.ValidateHeader(authHeader)
	if err != nil {
		slog.DebugContext(ctx, "token rejected", "request_tenant", requestTenantID, "error", err)
		return nil, nil, err
	}

	d := access.Evaluate(claims, requestTenantID, requiredRole)
	s.metrics.RecordDecision(ctx, string(d.Effect), string(d.Reason))
	if d.Allowed() {
		return claims, d.Scope, nil
	}

	// request_id is attached by the logger's context handler.
	slog.WarnContext(ctx, "access denied",
		"audit", true,
		"reason", string(d.Reason),
		"token_tenant", claims.TenantID,
		"request_tenant", requestTenantID,
		"subject", claims.Subject,
		"required_role", string(requiredRole),
	)
	s.events.publishBestEffort(ctx, messagequeue.SubjectAccessDenied, messagequeue.AccessDeniedPayload{
		Reason:        string(d.Reason),
		Subject:       claims.Subject,
		TokenTenant:   claims.TenantID,
		RequestTenant: requestTenantID,
		RequiredRole:  string(requiredRole),
		RequestID:     logger.RequestID(ctx),
		OccurredAt:    time.Now().UTC(),
	})
	return nil, nil, d.Err()
}
