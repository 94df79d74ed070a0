package observability

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the full stack.
// Call in a defer. The panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverHTTPPanic recovers from a panic inside an HTTP handler, logs
// it, and writes a generic 500 response.
func RecoverHTTPPanic(logger *Logger, w http.ResponseWriter) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			Error("PANIC recovered in HTTP handler")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	}
}
