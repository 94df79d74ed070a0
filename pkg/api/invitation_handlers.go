package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/config"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/rbac"
)

// InvitationHandlers provides HTTP handlers for the invitation lifecycle
type InvitationHandlers struct {
	service   orgs.Service
	evaluator *rbac.Evaluator
	audit     audit.Logger
	metrics   *observability.Metrics
	cfg       config.InvitationConfig
}

// NewInvitationHandlers creates invitation handlers
func NewInvitationHandlers(service orgs.Service, evaluator *rbac.Evaluator, auditLogger audit.Logger, metrics *observability.Metrics, cfg config.InvitationConfig) *InvitationHandlers {
	return &InvitationHandlers{
		service:   service,
		evaluator: evaluator,
		audit:     auditLogger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// RegisterRoutes registers invitation routes on an authenticated router.
// GetDetails is registered separately on the public router.
func (h *InvitationHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/invitations/accept", h.Accept).Methods("POST")
	router.HandleFunc("/organizations/{id}/invitations", h.Create).Methods("POST")
	router.HandleFunc("/organizations/{id}/invitations", h.List).Methods("GET")
	router.HandleFunc("/organizations/{id}/invitations/{invitation_id}", h.Revoke).Methods("DELETE")
}

type acceptRequest struct {
	Code string `json:"code"`
}

type acceptResponse struct {
	Organization int64     `json:"organization"`
	Role         auth.Role `json:"role"`
	Message      string    `json:"message"`
}

// Accept redeems an invitation code for the authenticated user
func (h *InvitationHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req acceptRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}

	result, err := h.service.AcceptInvitation(ctx, req.Code, authCtx.User)
	if err != nil {
		h.metrics.ObserveInvitationAccept(acceptOutcome(err))
		writeAcceptError(w, err)
		if !isInvitationDomainError(err) {
			observability.GetLogger(ctx).WithError(err).Error("failed to accept invitation")
		}
		return
	}

	h.metrics.ObserveInvitationAccept("accepted")
	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &result.OrgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeInvitationAccepted,
		Resource:       audit.ResourceTypeInvitation,
		Result:         audit.EventStatusSuccess,
		Metadata:       map[string]interface{}{"role": result.Role},
	})

	httputil.WriteSuccess(w, &acceptResponse{
		Organization: result.OrgID,
		Role:         result.Role,
		Message:      "invitation accepted",
	})
}

// GetDetails returns the public summary of an invitation. No
// authentication: the invitee may not have an account yet.
func (h *InvitationHandlers) GetDetails(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteValidationError(w, "code query parameter is required")
		return
	}

	details, err := h.service.GetInvitationDetails(r.Context(), code)
	if err != nil {
		writeAcceptError(w, err)
		if !isInvitationDomainError(err) {
			observability.GetLogger(r.Context()).WithError(err).Error("failed to load invitation details")
		}
		return
	}

	httputil.WriteSuccess(w, details)
}

// Create issues a new invitation for an organization
func (h *InvitationHandlers) Create(w http.ResponseWriter, r *http.Request) {
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

	var req orgs.CreateInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleMember
	}
	if !req.Role.Invitable() {
		httputil.WriteValidationError(w, fmt.Sprintf("role %q cannot be granted by invitation", req.Role))
		return
	}

	membership, err := h.evaluator.ValidateUserRole(ctx, orgID, authCtx.User.ID, auth.RoleAdmin)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to resolve inviter membership")
		httputil.WriteInternalError(w)
		return
	}
	if !membership.HasPermission {
		httputil.WriteForbidden(w, "inviting users requires the admin role")
		return
	}
	if !rbac.CanInviteRole(*membership.UserRole, req.Role) {
		httputil.WriteForbidden(w, "only owners can invite admins")
		return
	}

	ttl := h.cfg.DefaultTTL
	if req.ExpiresIn != "" {
		ttl, err = time.ParseDuration(req.ExpiresIn)
		if err != nil || ttl <= 0 {
			httputil.WriteValidationError(w, "expires_in must be a positive duration")
			return
		}
	}

	invitation := &orgs.OrgInvitation{
		OrgID:     orgID,
		Email:     req.Email,
		Role:      req.Role,
		InvitedBy: authCtx.User.ID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := h.service.CreateInvitation(ctx, invitation); err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to create invitation")
		httputil.WriteInternalError(w)
		return
	}

	h.metrics.InvitationsCreatedTotal.Inc()
	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeInvitationCreated,
		Resource:       audit.ResourceTypeInvitation,
		RecordID:       fmt.Sprintf("%d", invitation.ID),
		Result:         audit.EventStatusSuccess,
		Metadata:       map[string]interface{}{"role": invitation.Role, "email": invitation.Email},
	})

	httputil.WriteCreated(w, invitation)
}

// List returns the pending invitations of an organization
func (h *InvitationHandlers) List(w http.ResponseWriter, r *http.Request) {
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
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleAdmin, "listing invitations requires the admin role") {
		return
	}

	invitations, err := h.service.ListInvitations(ctx, orgID)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to list invitations")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, invitations)
}

// Revoke deletes an unused invitation
func (h *InvitationHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
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
	invitationID, ok := httputil.ParsePathInt64OrError(w, r, "invitation_id")
	if !ok {
		return
	}
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleAdmin, "revoking invitations requires the admin role") {
		return
	}

	if err := h.service.RevokeInvitation(ctx, orgID, invitationID); err != nil {
		if errors.Is(err, orgs.ErrInvitationNotFound) {
			httputil.WriteNotFoundError(w, "invitation not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to revoke invitation")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeInvitationRevoked,
		Resource:       audit.ResourceTypeInvitation,
		RecordID:       fmt.Sprintf("%d", invitationID),
		Result:         audit.EventStatusSuccess,
	})

	httputil.WriteNoContent(w)
}

// writeAcceptError maps invitation domain errors onto the HTTP taxonomy
func writeAcceptError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrInvalidCode), errors.Is(err, orgs.ErrInvitationNotFound):
		httputil.WriteNotFoundError(w, "invitation not found")
	case errors.Is(err, orgs.ErrInvitationUsed):
		httputil.WriteConflict(w, "invitation has already been used")
	case errors.Is(err, orgs.ErrInvitationExpired):
		httputil.WriteGone(w, "invitation has expired")
	case errors.Is(err, orgs.ErrEmailMismatch):
		httputil.WriteForbidden(w, "invitation was issued to a different email address")
	case errors.Is(err, orgs.ErrAlreadyMember):
		httputil.WriteConflict(w, "already a member of this organization")
	default:
		httputil.WriteInternalError(w)
	}
}

func isInvitationDomainError(err error) bool {
	return errors.Is(err, orgs.ErrInvalidCode) ||
		errors.Is(err, orgs.ErrInvitationNotFound) ||
		errors.Is(err, orgs.ErrInvitationUsed) ||
		errors.Is(err, orgs.ErrInvitationExpired) ||
		errors.Is(err, orgs.ErrEmailMismatch) ||
		errors.Is(err, orgs.ErrAlreadyMember)
}

func acceptOutcome(err error) string {
	switch {
	case errors.Is(err, orgs.ErrInvalidCode), errors.Is(err, orgs.ErrInvitationNotFound):
		return "invalid_code"
	case errors.Is(err, orgs.ErrInvitationUsed):
		return "already_used"
	case errors.Is(err, orgs.ErrInvitationExpired):
		return "expired"
	case errors.Is(err, orgs.ErrEmailMismatch):
		return "email_mismatch"
	case errors.Is(err, orgs.ErrAlreadyMember):
		return "already_member"
	default:
		return "error"
	}
}

// requireRole resolves the caller's membership and writes a 403 when it
// does not meet the minimum. Shared by the org-scoped handler groups.
func requireRole(w http.ResponseWriter, r *http.Request, evaluator *rbac.Evaluator, orgID int64, minimum auth.Role, denial string) bool {
	authCtx := middleware.GetAuthContext(r)
	check, err := evaluator.ValidateUserRole(r.Context(), orgID, authCtx.User.ID, minimum)
	if err != nil {
		observability.GetLogger(r.Context()).WithError(err).Error("failed to resolve caller membership")
		httputil.WriteInternalError(w)
		return false
	}
	if !check.HasPermission {
		httputil.WriteForbidden(w, denial)
		return false
	}
	return true
}
