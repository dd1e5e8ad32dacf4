package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tenantdash"

// StartLoginSpan starts a span for a credential check.
func StartLoginSpan(ctx context.Context, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
}

// StartAuthorizeSpan starts a span for token validation plus the guard.
func StartAuthorizeSpan(ctx context.Context, requestTenantID, requiredRole string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "auth.authorize",
		trace.WithAttributes(
			attribute.String("tenant.id", requestTenantID),
			attribute.String("auth.required_role", requiredRole),
		),
	)
}

// StartThemeUpdateSpan starts a span for a merge-and-save of a tenant theme.
func StartThemeUpdateSpan(ctx context.Context, tenantID string, keys int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.theme.update",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.Int("theme.keys", keys),
		),
	)
}
