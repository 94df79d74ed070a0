// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here to
// prevent typos and make key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.AuthMiddleware
	// Required by: all protected API endpoints
	AuthKey Key = "auth_context"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: observability.RequestIDMiddleware
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	LoggerKey Key = "logger"

	// AuditLoggerKey contains audit.Logger
	// Set by: audit.Middleware
	AuditLoggerKey Key = "audit_logger"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithAuditLogger adds audit logger to the context
func WithAuditLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
