package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
)

const maxBatchActions = 50

// Handlers provides HTTP handlers for permission validation
type Handlers struct {
	evaluator *Evaluator
	metrics   *observability.Metrics
}

// NewHandlers creates new permission handlers
func NewHandlers(evaluator *Evaluator, metrics *observability.Metrics) *Handlers {
	return &Handlers{evaluator: evaluator, metrics: metrics}
}

// RegisterRoutes registers permission routes on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/permissions/validate", h.ValidatePermissions).Methods("POST")
}

// ValidatePermissions evaluates a batch of actions for the caller within
// one organization. Callers who are not members of the organization get
// a 403 rather than a per-action breakdown.
func (h *Handlers) ValidatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req ValidateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.OrganizationID <= 0 {
		httputil.WriteValidationError(w, "organization_id is required")
		return
	}
	if len(req.Actions) > maxBatchActions {
		httputil.WriteValidationError(w, "too many actions in one request")
		return
	}

	membership, err := h.evaluator.ValidateUserRole(ctx, req.OrganizationID, authCtx.User.ID, auth.RoleMember)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to resolve caller membership")
		httputil.WriteInternalError(w)
		return
	}
	if !membership.HasPermission {
		httputil.WriteForbidden(w, "not a member of this organization")
		return
	}

	role := *membership.UserRole
	permissions := make(map[string]bool, len(req.Actions))
	for _, action := range req.Actions {
		allowed := role.AtLeast(MinimumRoleFor(action))
		permissions[action] = allowed
		if h.metrics != nil {
			h.metrics.ObservePermissionCheck(action, allowed)
		}
	}

	resp := &ValidateResponse{
		OrganizationID: req.OrganizationID,
		Role:           role,
		Permissions:    permissions,
	}

	if req.TargetUserID != nil {
		action := ManageAction(req.TargetAction)
		if action == "" {
			action = ManageActionChangeRole
		}
		check, err := h.evaluator.CanManageUser(ctx, req.OrganizationID, authCtx.User.ID, *req.TargetUserID, action)
		if err != nil {
			observability.GetLogger(ctx).WithError(err).Error("failed to evaluate management check")
			httputil.WriteInternalError(w)
			return
		}
		resp.CanManageTarget = &check.Allowed
		resp.ManagementReason = check.Reason
	}

	httputil.WriteSuccess(w, resp)
}
