package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required Role
		expected bool
	}{
		{"owner passes owner", RoleOwner, RoleOwner, true},
		{"owner passes admin", RoleOwner, RoleAdmin, true},
		{"owner passes member", RoleOwner, RoleMember, true},
		{"admin fails owner", RoleAdmin, RoleOwner, false},
		{"admin passes admin", RoleAdmin, RoleAdmin, true},
		{"admin passes member", RoleAdmin, RoleMember, true},
		{"member fails owner", RoleMember, RoleOwner, false},
		{"member fails admin", RoleMember, RoleAdmin, false},
		{"member passes member", RoleMember, RoleMember, true},
		{"unknown fails member", Role("viewer"), RoleMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.AtLeast(tt.required))
		})
	}
}

func TestRoleOrderingIsTransitive(t *testing.T) {
	// owner >= admin and admin >= member imply owner >= member
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleMember))
	assert.True(t, RoleOwner.AtLeast(RoleMember))
}

func TestRoleOutranksStrictly(t *testing.T) {
	assert.True(t, RoleOwner.OutranksStrictly(RoleAdmin))
	assert.True(t, RoleAdmin.OutranksStrictly(RoleMember))
	assert.False(t, RoleAdmin.OutranksStrictly(RoleAdmin))
	assert.False(t, RoleAdmin.OutranksStrictly(RoleOwner))
	assert.False(t, RoleMember.OutranksStrictly(RoleMember))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("superuser")
	assert.False(t, ok)

	// Roles are case-sensitive on the wire
	_, ok = ParseRole("Admin")
	assert.False(t, ok)
}

func TestRoleInvitable(t *testing.T) {
	assert.True(t, RoleAdmin.Invitable())
	assert.True(t, RoleMember.Invitable())
	assert.False(t, RoleOwner.Invitable())
	assert.False(t, Role("viewer").Invitable())
}
