// Package orgs provides multi-tenant organization management for BudgetUp.
//
// # Overview
//
// This package manages organizations, membership, and the invitation
// lifecycle. Invitations are single-use, time-boxed codes bound to an
// email address; redemption is transactional and safe under concurrent
// attempts on the same code.
//
// # Invitation Lifecycle
//
// Create:
//
//	inv := &orgs.OrgInvitation{
//		OrgID:     orgID,
//		Email:     "teammate@example.com",
//		Role:      auth.RoleMember,
//		InvitedBy: adminID,
//	}
//	service.CreateInvitation(ctx, inv)
//	// inv.Code is a fresh code like "7XK2-M4PQ-9RWD"
//
// Redeem:
//
//	result, err := service.AcceptInvitation(ctx, code, user)
//	switch {
//	case errors.Is(err, orgs.ErrInvitationExpired):
//		// 410
//	case errors.Is(err, orgs.ErrEmailMismatch):
//		// 403
//	}
//
// A redeemed code can never be used again; expired codes linger for a
// grace period so admins can see what lapsed, then the janitor removes
// them via CleanupExpiredInvitations.
//
// # Related Packages
//
//   - pkg/auth: User identity and roles (owner, admin, member)
//   - pkg/rbac: Permission evaluation on top of membership
//   - pkg/audit: Audit trail of membership changes
package orgs
