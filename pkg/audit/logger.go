package audit

import (
	"context"

	"github.com/budgetup/budgetup/pkg/contextkeys"
)

// Logger is the interface for audit logging. Log never blocks the
// calling request path; failures are recorded, not propagated.
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event)

	// Close flushes any buffered events and stops the logger
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	// Return a no-op logger if none is set
	return NopLogger{}
}

// NopLogger is a logger that does nothing
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) {}

func (NopLogger) Close() error { return nil }
