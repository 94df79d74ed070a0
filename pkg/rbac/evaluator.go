package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/orgs"
)

// MembershipSource resolves a user's membership within an organization
type MembershipSource interface {
	GetMember(ctx context.Context, orgID, userID int64) (*orgs.OrgMember, error)
}

// Evaluator answers permission questions from membership roles. It holds
// no state beyond the membership source and is safe for concurrent use.
type Evaluator struct {
	members MembershipSource
}

// NewEvaluator creates a new permission evaluator
func NewEvaluator(members MembershipSource) *Evaluator {
	return &Evaluator{members: members}
}

// MinimumRoleFor returns the minimum role required for an action.
// Unknown actions require plain membership.
func MinimumRoleFor(action string) auth.Role {
	switch action {
	case ActionManageAdmins, ActionManageOrganization:
		return auth.RoleOwner
	case ActionManageMembers, ActionInviteUsers, ActionRemoveMembers,
		ActionChangeRoles, ActionViewAuditLogs:
		return auth.RoleAdmin
	default:
		return auth.RoleMember
	}
}

// ValidateUserRole checks whether a user holds at least the given role
// in an organization. Absent membership yields a negative check rather
// than an error.
func (e *Evaluator) ValidateUserRole(ctx context.Context, orgID, userID int64, min auth.Role) (*RoleCheck, error) {
	member, err := e.members.GetMember(ctx, orgID, userID)
	if errors.Is(err, orgs.ErrMemberNotFound) {
		return &RoleCheck{HasPermission: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	role := member.Role
	return &RoleCheck{
		HasPermission: role.AtLeast(min),
		UserRole:      &role,
	}, nil
}

// HasPermission checks whether a user may perform a named action
func (e *Evaluator) HasPermission(ctx context.Context, orgID, userID int64, action string) (*RoleCheck, error) {
	return e.ValidateUserRole(ctx, orgID, userID, MinimumRoleFor(action))
}

// CanManageUser checks whether the actor may perform a management
// action (role change, removal) on the target member. The actor must
// strictly outrank the target; self-management is always denied.
func (e *Evaluator) CanManageUser(ctx context.Context, orgID, actorID, targetID int64, action ManageAction) (*ManagementCheck, error) {
	if actorID == targetID {
		return &ManagementCheck{Allowed: false, Reason: ReasonCannotManageSelf}, nil
	}

	actor, err := e.members.GetMember(ctx, orgID, actorID)
	if errors.Is(err, orgs.ErrMemberNotFound) {
		return &ManagementCheck{Allowed: false, Reason: ReasonNotAMember}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor membership: %w", err)
	}

	target, err := e.members.GetMember(ctx, orgID, targetID)
	if errors.Is(err, orgs.ErrMemberNotFound) {
		return &ManagementCheck{Allowed: false, Reason: ReasonTargetNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target membership: %w", err)
	}

	if !actor.Role.OutranksStrictly(target.Role) {
		return &ManagementCheck{Allowed: false, Reason: ReasonInsufficientPrivilege}, nil
	}

	return &ManagementCheck{Allowed: true}, nil
}

// CanInviteRole checks whether an actor holding actorRole may issue an
// invitation granting inviteeRole. Only invitable roles (admin, member)
// can be granted; inviting an admin takes an owner.
func CanInviteRole(actorRole, inviteeRole auth.Role) bool {
	if !inviteeRole.Invitable() {
		return false
	}
	if inviteeRole == auth.RoleAdmin {
		return actorRole.AtLeast(auth.RoleOwner)
	}
	return actorRole.AtLeast(auth.RoleAdmin)
}
