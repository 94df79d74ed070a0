package observability

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/contextkeys"
)

// routePattern returns the mux route template for metric labels so that
// path parameters do not explode label cardinality.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RequestIDMiddleware assigns a UUID request ID to each request, honoring
// an inbound X-Request-ID header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware attaches a request-scoped logger to the context and
// logs each request on completion.
func LoggingMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger
			if requestID := contextkeys.GetRequestID(r.Context()); requestID != "" {
				reqLogger = logger.WithField("request_id", requestID)
			}

			ctx := WithLogger(r.Context(), reqLogger)
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(ctx))

			reqLogger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			}).Info("request completed")
		})
	}
}

// RecoveryMiddleware recovers from handler panics and returns a 500
func RecoveryMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer RecoverHTTPPanic(logger, w)
			next.ServeHTTP(w, r)
		})
	}
}
