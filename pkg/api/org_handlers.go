package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/httputil"
	"github.com/budgetup/budgetup/pkg/middleware"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/rbac"
)

// OrgHandlers provides HTTP handlers for organizations and their members
type OrgHandlers struct {
	service   orgs.Service
	evaluator *rbac.Evaluator
	audit     audit.Logger
}

// NewOrgHandlers creates organization handlers
func NewOrgHandlers(service orgs.Service, evaluator *rbac.Evaluator, auditLogger audit.Logger) *OrgHandlers {
	return &OrgHandlers{service: service, evaluator: evaluator, audit: auditLogger}
}

// RegisterRoutes registers organization routes on an authenticated router
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations", h.Create).Methods("POST")
	router.HandleFunc("/organizations", h.List).Methods("GET")
	router.HandleFunc("/organizations/{id}", h.Get).Methods("GET")
	router.HandleFunc("/organizations/{id}", h.Update).Methods("PUT")
	router.HandleFunc("/organizations/{id}", h.Delete).Methods("DELETE")
	router.HandleFunc("/organizations/{id}/members", h.ListMembers).Methods("GET")
	router.HandleFunc("/organizations/{id}/members/{user_id}", h.UpdateMemberRole).Methods("PUT")
	router.HandleFunc("/organizations/{id}/members/{user_id}", h.RemoveMember).Methods("DELETE")
}

// Create creates an organization with the caller as its owner
func (h *OrgHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req orgs.CreateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	org := &orgs.Organization{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		CreatedBy:   authCtx.User.ID,
	}
	if err := h.service.CreateOrganization(ctx, org); err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to create organization")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &org.ID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeOrgCreated,
		Resource:       audit.ResourceTypeOrganization,
		RecordID:       fmt.Sprintf("%d", org.ID),
		Result:         audit.EventStatusSuccess,
		Metadata:       map[string]interface{}{"name": org.Name},
	})

	httputil.WriteCreated(w, org)
}

// List returns the organizations the caller belongs to
func (h *OrgHandlers) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	organizations, err := h.service.ListOrganizations(ctx, authCtx.User.ID)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to list organizations")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, organizations)
}

// Get returns one organization; callers must be members
func (h *OrgHandlers) Get(w http.ResponseWriter, r *http.Request) {
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
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleMember, "not a member of this organization") {
		return
	}

	org, err := h.service.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to load organization")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, org)
}

// Update modifies organization settings; owners only
func (h *OrgHandlers) Update(w http.ResponseWriter, r *http.Request) {
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
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleOwner, "managing the organization requires the owner role") {
		return
	}

	var req orgs.UpdateOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.UpdateOrganization(ctx, orgID, &req); err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to update organization")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeOrgUpdated,
		Resource:       audit.ResourceTypeOrganization,
		RecordID:       fmt.Sprintf("%d", orgID),
		Result:         audit.EventStatusSuccess,
	})

	httputil.WriteNoContent(w)
}

// Delete soft-deletes an organization; owners only
func (h *OrgHandlers) Delete(w http.ResponseWriter, r *http.Request) {
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
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleOwner, "managing the organization requires the owner role") {
		return
	}

	if err := h.service.DeleteOrganization(ctx, orgID); err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			httputil.WriteNotFoundError(w, "organization not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to delete organization")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeOrgDeleted,
		Resource:       audit.ResourceTypeOrganization,
		RecordID:       fmt.Sprintf("%d", orgID),
		Result:         audit.EventStatusSuccess,
	})

	httputil.WriteNoContent(w)
}

// ListMembers returns the members of an organization
func (h *OrgHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
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
	if !requireRole(w, r, h.evaluator, orgID, auth.RoleMember, "not a member of this organization") {
		return
	}

	members, err := h.service.ListMembers(ctx, orgID)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to list members")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, members)
}

// UpdateMemberRole changes a member's role. The relative-privilege rule
// applies to both the target's current role and the granted one: owners
// cannot be created this way, and granting admin takes an owner.
func (h *OrgHandlers) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
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
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	var req orgs.UpdateMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Role.Invitable() {
		httputil.WriteValidationError(w, fmt.Sprintf("role %q cannot be granted", req.Role))
		return
	}

	actor, allowed := h.checkManagement(w, r, orgID, authCtx.User.ID, targetID, rbac.ManageActionChangeRole)
	if !allowed {
		return
	}
	if !rbac.CanInviteRole(actor, req.Role) {
		httputil.WriteForbidden(w, "only owners can grant the admin role")
		return
	}

	if err := h.service.UpdateMemberRole(ctx, orgID, targetID, req.Role); err != nil {
		if errors.Is(err, orgs.ErrMemberNotFound) {
			httputil.WriteNotFoundError(w, "member not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to update member role")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeMemberRoleChanged,
		Resource:       audit.ResourceTypeMember,
		RecordID:       fmt.Sprintf("%d", targetID),
		Result:         audit.EventStatusSuccess,
		Metadata:       map[string]interface{}{"role": req.Role},
	})

	httputil.WriteNoContent(w)
}

// RemoveMember removes a member from an organization
func (h *OrgHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
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
	targetID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if _, allowed := h.checkManagement(w, r, orgID, authCtx.User.ID, targetID, rbac.ManageActionRemove); !allowed {
		return
	}

	if err := h.service.RemoveMember(ctx, orgID, targetID); err != nil {
		if errors.Is(err, orgs.ErrMemberNotFound) {
			httputil.WriteNotFoundError(w, "member not found")
			return
		}
		observability.GetLogger(ctx).WithError(err).Error("failed to remove member")
		httputil.WriteInternalError(w)
		return
	}

	h.audit.Log(ctx, &audit.Event{
		OrganizationID: &orgID,
		ActorID:        &authCtx.User.ID,
		Action:         audit.EventTypeMemberRemoved,
		Resource:       audit.ResourceTypeMember,
		RecordID:       fmt.Sprintf("%d", targetID),
		Result:         audit.EventStatusSuccess,
	})

	httputil.WriteNoContent(w)
}

// checkManagement runs the relative-privilege check and writes the
// denial itself. It returns the actor's role for follow-up checks on
// the granted role.
func (h *OrgHandlers) checkManagement(w http.ResponseWriter, r *http.Request, orgID, actorID, targetID int64, action rbac.ManageAction) (auth.Role, bool) {
	ctx := r.Context()
	check, err := h.evaluator.CanManageUser(ctx, orgID, actorID, targetID, action)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to evaluate management check")
		httputil.WriteInternalError(w)
		return "", false
	}
	if !check.Allowed {
		h.audit.Log(ctx, &audit.Event{
			OrganizationID: &orgID,
			ActorID:        &actorID,
			Action:         audit.EventTypePermissionDenied,
			Resource:       audit.ResourceTypeMember,
			RecordID:       fmt.Sprintf("%d", targetID),
			Result:         audit.EventStatusDenied,
			Metadata:       map[string]interface{}{"reason": check.Reason, "action": action},
		})
		switch check.Reason {
		case rbac.ReasonTargetNotFound:
			httputil.WriteNotFoundError(w, "member not found")
		default:
			httputil.WriteForbidden(w, managementDenial(check.Reason))
		}
		return "", false
	}

	member, err := h.service.GetMember(ctx, orgID, actorID)
	if err != nil {
		observability.GetLogger(ctx).WithError(err).Error("failed to resolve actor role")
		httputil.WriteInternalError(w)
		return "", false
	}
	return member.Role, true
}

func managementDenial(reason string) string {
	switch reason {
	case rbac.ReasonCannotManageSelf:
		return "cannot manage your own membership"
	case rbac.ReasonNotAMember:
		return "not a member of this organization"
	default:
		return "insufficient privilege to manage this member"
	}
}
