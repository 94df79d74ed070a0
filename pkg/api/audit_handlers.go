package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/rbac"
)

const maxAuditPageSize = 200

// AuditHandlers provides read access to an organization's audit trail
type AuditHandlers struct {
	store     *audit.Store
	evaluator *rbac.Evaluator
}

// NewAuditHandlers creates audit log handlers
func NewAuditHandlers(store *audit.Store, evaluator *rbac.Evaluator) *AuditHandlers {
	return &AuditHandlers{store: store, evaluator: evaluator}
}

// RegisterRoutes registers audit routes on an authenticated router
func (h *AuditHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations/{id}/audit-logs", h.List).Methods("GET")
}

// List returns a filtered page of an organization's audit log
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleAdmin, "viewing audit logs requires the admin role") {
		return
	}

	filter, ok := parseAuditFilter(w, r, orgID)
	if !ok {
		return
	}

	events, err := h.store.List(ctx, filter)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to list audit logs")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"events": events,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func parseAuditFilter(w http.ResponseWriter, r *http.Request, orgID int64) (audit.ListFilter, bool) {
	filter := audit.ListFilter{
		OrganizationID: &orgID,
		Action:         audit.EventType(r.URL.Query().Get("action")),
		Resource:       audit.ResourceType(r.URL.Query().Get("resource")),
	}

	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteValidationError(w, "actor_id must be an integer")
			return filter, false
		}
		filter.ActorID = &actorID
	}

	for _, bound := range []struct {
		param string
		dest  **time.Time
	}{
		{"since", &filter.Since},
		{"until", &filter.Until},
	} {
		raw := r.URL.Query().Get(bound.param)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteValidationError(w, bound.param+" must be an RFC 3339 timestamp")
			return filter, false
		}
		*bound.dest = &ts
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil || limit < 0 || limit > maxAuditPageSize {
		httputil.WriteValidationError(w, "limit must be between 0 and 200")
		return filter, false
	}
	filter.Limit = limit

	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httputil.WriteValidationError(w, "offset must be a non-negative integer")
		return filter, false
	}
	filter.Offset = offset

	return filter, true
}
