package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/orgs"
)

// fakeMembers is an in-memory MembershipSource keyed by (orgID, userID)
type fakeMembers struct {
	roles map[int64]map[int64]auth.Role
	err   error
}

func (f *fakeMembers) GetMember(ctx context.Context, orgID, userID int64) (*orgs.OrgMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.roles[orgID][userID]
	if !ok {
		return nil, orgs.ErrMemberNotFound
	}
	return &orgs.OrgMember{OrganizationID: orgID, UserID: userID, Role: role}, nil
}

func membersWith(orgID int64, roles map[int64]auth.Role) *fakeMembers {
	return &fakeMembers{roles: map[int64]map[int64]auth.Role{orgID: roles}}
}

func TestMinimumRoleFor(t *testing.T) {
	tests := []struct {
		action string
		want   auth.Role
	}{
		{ActionManageMembers, auth.RoleAdmin},
		{ActionManageAdmins, auth.RoleOwner},
		{ActionInviteUsers, auth.RoleAdmin},
		{ActionRemoveMembers, auth.RoleAdmin},
		{ActionChangeRoles, auth.RoleAdmin},
		{ActionViewAuditLogs, auth.RoleAdmin},
		{ActionManageOrganization, auth.RoleOwner},
		{"view_budget", auth.RoleMember},
		{"", auth.RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, MinimumRoleFor(tt.action))
		})
	}
}

func TestValidateUserRole(t *testing.T) {
	const orgID = int64(1)
	e := NewEvaluator(membersWith(orgID, map[int64]auth.Role{
		1: auth.RoleOwner,
		2: auth.RoleAdmin,
		3: auth.RoleMember,
	}))
	ctx := context.Background()

	t.Run("role matrix", func(t *testing.T) {
		tests := []struct {
			name   string
			userID int64
			min    auth.Role
			want   bool
		}{
			{"owner meets owner", 1, auth.RoleOwner, true},
			{"owner meets admin", 1, auth.RoleAdmin, true},
			{"owner meets member", 1, auth.RoleMember, true},
			{"admin fails owner", 2, auth.RoleOwner, false},
			{"admin meets admin", 2, auth.RoleAdmin, true},
			{"admin meets member", 2, auth.RoleMember, true},
			{"member fails owner", 3, auth.RoleOwner, false},
			{"member fails admin", 3, auth.RoleAdmin, false},
			{"member meets member", 3, auth.RoleMember, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				check, err := e.ValidateUserRole(ctx, orgID, tt.userID, tt.min)
				require.NoError(t, err)
				assert.Equal(t, tt.want, check.HasPermission)
				require.NotNil(t, check.UserRole)
			})
		}
	})

	t.Run("non-member gets a negative check, not an error", func(t *testing.T) {
		check, err := e.ValidateUserRole(ctx, orgID, 99, auth.RoleMember)
		require.NoError(t, err)
		assert.False(t, check.HasPermission)
		assert.Nil(t, check.UserRole)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		broken := NewEvaluator(&fakeMembers{err: assert.AnError})
		_, err := broken.ValidateUserRole(ctx, orgID, 1, auth.RoleMember)
		assert.Error(t, err)
	})
}

func TestHasPermission(t *testing.T) {
	const orgID = int64(1)
	e := NewEvaluator(membersWith(orgID, map[int64]auth.Role{
		2: auth.RoleAdmin,
		3: auth.RoleMember,
	}))
	ctx := context.Background()

	check, err := e.HasPermission(ctx, orgID, 2, ActionInviteUsers)
	require.NoError(t, err)
	assert.True(t, check.HasPermission)

	// Admins hold manage_members but not manage_admins.
	check, err = e.HasPermission(ctx, orgID, 2, ActionManageAdmins)
	require.NoError(t, err)
	assert.False(t, check.HasPermission)

	check, err = e.HasPermission(ctx, orgID, 3, ActionInviteUsers)
	require.NoError(t, err)
	assert.False(t, check.HasPermission)
}

func TestCanManageUser(t *testing.T) {
	const orgID = int64(1)
	e := NewEvaluator(membersWith(orgID, map[int64]auth.Role{
		1: auth.RoleOwner,
		2: auth.RoleAdmin,
		3: auth.RoleMember,
		4: auth.RoleAdmin,
		5: auth.RoleOwner,
	}))
	ctx := context.Background()

	tests := []struct {
		name       string
		actorID    int64
		targetID   int64
		wantAllow  bool
		wantReason string
	}{
		{"owner manages admin", 1, 2, true, ""},
		{"owner manages member", 1, 3, true, ""},
		{"admin manages member", 2, 3, true, ""},
		{"admin cannot manage admin", 2, 4, false, ReasonInsufficientPrivilege},
		{"admin cannot manage owner", 2, 1, false, ReasonInsufficientPrivilege},
		{"owner cannot manage another owner", 1, 5, false, ReasonInsufficientPrivilege},
		{"member cannot manage anyone", 3, 2, false, ReasonInsufficientPrivilege},
		{"self-management denied", 2, 2, false, ReasonCannotManageSelf},
		{"owner cannot manage self", 1, 1, false, ReasonCannotManageSelf},
		{"missing target", 1, 99, false, ReasonTargetNotFound},
		{"actor not a member", 99, 3, false, ReasonNotAMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := e.CanManageUser(ctx, orgID, tt.actorID, tt.targetID, ManageActionChangeRole)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, check.Allowed)
			assert.Equal(t, tt.wantReason, check.Reason)
		})
	}
}

func TestCanInviteRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Role
		invitee auth.Role
		want    bool
	}{
		{"admin invites member", auth.RoleAdmin, auth.RoleMember, true},
		{"owner invites member", auth.RoleOwner, auth.RoleMember, true},
		{"owner invites admin", auth.RoleOwner, auth.RoleAdmin, true},
		{"admin cannot invite admin", auth.RoleAdmin, auth.RoleAdmin, false},
		{"member cannot invite", auth.RoleMember, auth.RoleMember, false},
		{"nobody invites an owner", auth.RoleOwner, auth.RoleOwner, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanInviteRole(tt.actor, tt.invitee))
		})
	}
}
