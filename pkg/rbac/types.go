package rbac

import (
	"github.com/budgetup/budgetup/pkg/auth"
)

// Action names accepted by the permission validator. Unknown actions
// fall back to requiring plain membership.
const (
	ActionManageMembers      = "manage_members"
	ActionManageAdmins       = "manage_admins"
	ActionInviteUsers        = "invite_users"
	ActionRemoveMembers      = "remove_members"
	ActionChangeRoles        = "change_roles"
	ActionViewAuditLogs      = "view_audit_logs"
	ActionManageOrganization = "manage_organization"
)

// ManageAction identifies a management operation on a specific member
type ManageAction string

const (
	ManageActionChangeRole ManageAction = "change_role"
	ManageActionRemove     ManageAction = "remove"
	ManageActionInvite     ManageAction = "invite"
)

// Management denial reasons surfaced to API clients
const (
	ReasonInsufficientPrivilege = "insufficient_privilege"
	ReasonCannotManageSelf      = "cannot_manage_self"
	ReasonTargetNotFound        = "target_not_found"
	ReasonNotAMember            = "not_a_member"
)

// RoleCheck is the result of a minimum-role check. A user with no
// membership gets a negative check, not an error.
type RoleCheck struct {
	HasPermission bool       `json:"has_permission"`
	UserRole      *auth.Role `json:"user_role,omitempty"`
}

// ManagementCheck is the result of asking whether an actor may perform
// a management action on a target member.
type ManagementCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ValidateRequest is the batch permission validation request body.
// Actions may be empty when the caller only wants the target check.
type ValidateRequest struct {
	OrganizationID int64    `json:"organization_id"`
	Actions        []string `json:"actions,omitempty"`
	TargetUserID   *int64   `json:"target_user_id,omitempty"`
	TargetAction   string   `json:"action,omitempty"`
}

// ValidateResponse is the batch permission validation response body
type ValidateResponse struct {
	OrganizationID   int64           `json:"organization_id"`
	Role             auth.Role       `json:"role"`
	Permissions      map[string]bool `json:"permissions"`
	CanManageTarget  *bool           `json:"can_manage_target,omitempty"`
	ManagementReason string          `json:"management_reason,omitempty"`
}
