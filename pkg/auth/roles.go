package auth

// Role represents organization-level roles
type Role string

const (
	RoleOwner  Role = "owner"  // Full control, including admin management
	RoleAdmin  Role = "admin"  // Member and invitation management
	RoleMember Role = "member" // Regular access to organization data
)

// roleLevels is the single source of truth for the privilege order.
// Higher level means more privilege: owner > admin > member.
var roleLevels = map[Role]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
}

// Level returns the ordinal privilege of the role. Unknown roles are 0,
// below every valid role.
func (r Role) Level() int {
	return roleLevels[r]
}

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	return r.Level() > 0
}

// AtLeast reports whether the role is at least as privileged as other
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

// OutranksStrictly reports whether the role is strictly more privileged
// than other. Management checks require a strict ordering: an admin may
// never manage another admin.
func (r Role) OutranksStrictly(other Role) bool {
	return r.Level() > other.Level()
}

// ParseRole converts a string to a Role, reporting whether it is valid
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// Invitable reports whether the role may be assigned through an
// invitation. Ownership is never granted by invitation.
func (r Role) Invitable() bool {
	return r == RoleAdmin || r == RoleMember
}
