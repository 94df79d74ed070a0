package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	vars := mux.Vars(r)
	str := vars[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes error on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// GetPathVars returns all path variables from the request
func GetPathVars(r *http.Request) map[string]string {
	return mux.Vars(r)
}

// ParseQueryInt extracts and parses an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// RequireNonEmpty validates that a string field is not empty
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// RequirePositive validates that an integer is positive
func RequirePositive(w http.ResponseWriter, value int64, fieldName string) bool {
	if value <= 0 {
		WriteValidationError(w, fmt.Sprintf("%s must be positive", fieldName))
		return false
	}
	return true
}
