package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tenantdash"

// Metrics holds all tenantdash metric instruments.
type Metrics struct {
	AuthDecisions  metric.Int64Counter
	Logins         metric.Int64Counter
	ThemeUpdates   metric.Int64Counter
	ThemeConflicts metric.Int64Counter
	SettingsCache  metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.AuthDecisions, err = meter.Int64Counter("tenantdash.auth.decisions",
		metric.WithDescription("Tenant-scope guard decisions by effect and reason"))
	if err != nil {
		return nil, err
	}

	m.Logins, err = meter.Int64Counter("tenantdash.auth.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}

	m.ThemeUpdates, err = meter.Int64Counter("tenantdash.theme.updates",
		metric.WithDescription("Committed theme updates"))
	if err != nil {
		return nil, err
	}

	m.ThemeConflicts, err = meter.Int64Counter("tenantdash.theme.conflicts",
		metric.WithDescription("Theme update version conflicts that triggered a retry"))
	if err != nil {
		return nil, err
	}

	m.SettingsCache, err = meter.Int64Counter("tenantdash.settings.cache",
		metric.WithDescription("Tenant settings cache lookups by result"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDecision counts one guard decision. Safe on a nil receiver.
func (m *Metrics) RecordDecision(ctx context.Context, effect, reason string) {
	if m == nil {
		return
	}
	m.AuthDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("effect", effect),
		attribute.String("reason", reason),
	))
}

// RecordLogin counts one login attempt. Safe on a nil receiver.
func (m *Metrics) RecordLogin(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.Logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCacheLookup counts one settings cache lookup. Safe on a nil receiver.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SettingsCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordThemeUpdate counts one committed theme update and the version
// conflicts it retried through. Safe on a nil receiver.
func (m *Metrics) RecordThemeUpdate(ctx context.Context, tenantID string, conflicts int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tenant.id", tenantID))
	m.ThemeUpdates.Add(ctx, 1, attrs)
	if conflicts > 0 {
		m.ThemeConflicts.Add(ctx, int64(conflicts), attrs)
	}
}
