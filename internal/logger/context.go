package logger

import "context"

// requestFields are the request-scoped values the log handler copies onto
// every record. A stored value is never mutated; the With functions copy.
type requestFields struct {
	requestID   string
	actor       string
	actorTenant string
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

// WithRequestID returns ctx carrying id as its request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	f := fieldsFrom(ctx)
	f.requestID = id
	return context.WithValue(ctx, fieldsKey{}, f)
}

// RequestID returns the request ID of ctx, or "".
func RequestID(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}

// WithActor returns ctx carrying the verified subject and its tenant. Set it
// only after the bearer token has been validated.
func WithActor(ctx context.Context, tenantID, subject string) context.Context {
	f := fieldsFrom(ctx)
	f.actor, f.actorTenant = subject, tenantID
	return context.WithValue(ctx, fieldsKey{}, f)
}

// Actor returns the tenant and subject stored by WithActor.
func Actor(ctx context.Context) (tenantID, subject string) {
	f := fieldsFrom(ctx)
	return f.actorTenant, f.actor
}
