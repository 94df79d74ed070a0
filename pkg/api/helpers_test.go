package api

import (
	"context"
	"sync"
	"time"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/rbac"
)

// stubService lets each test wire only the methods its handler touches.
// Unwired methods return the zero value.
type stubService struct {
	createOrg      func(ctx context.Context, org *orgs.Organization) error
	getOrg         func(ctx context.Context, id int64) (*orgs.Organization, error)
	listOrgs       func(ctx context.Context, userID int64) ([]*orgs.Organization, error)
	updateOrg      func(ctx context.Context, id int64, updates *orgs.UpdateOrgRequest) error
	deleteOrg      func(ctx context.Context, id int64) error
	listMembers    func(ctx context.Context, orgID int64) ([]*orgs.OrgMember, error)
	getMember      func(ctx context.Context, orgID, userID int64) (*orgs.OrgMember, error)
	addMember      func(ctx context.Context, orgID, userID int64, role auth.Role, invitedBy *int64) error
	updateRole     func(ctx context.Context, orgID, userID int64, role auth.Role) error
	removeMember   func(ctx context.Context, orgID, userID int64) error
	createInvite   func(ctx context.Context, invitation *orgs.OrgInvitation) error
	inviteDetails  func(ctx context.Context, code string) (*orgs.InvitationDetails, error)
	listInvites    func(ctx context.Context, orgID int64) ([]*orgs.OrgInvitation, error)
	acceptInvite   func(ctx context.Context, code string, user *auth.User) (*orgs.AcceptResult, error)
	revokeInvite   func(ctx context.Context, orgID, id int64) error
	cleanupInvites func(ctx context.Context, grace time.Duration) (int64, error)
}

func (s *stubService) CreateOrganization(ctx context.Context, org *orgs.Organization) error {
	if s.createOrg == nil {
		return nil
	}
	return s.createOrg(ctx, org)
}

func (s *stubService) GetOrganization(ctx context.Context, id int64) (*orgs.Organization, error) {
	if s.getOrg == nil {
		return nil, orgs.ErrOrgNotFound
	}
	return s.getOrg(ctx, id)
}

func (s *stubService) ListOrganizations(ctx context.Context, userID int64) ([]*orgs.Organization, error) {
	if s.listOrgs == nil {
		return nil, nil
	}
	return s.listOrgs(ctx, userID)
}

func (s *stubService) UpdateOrganization(ctx context.Context, id int64, updates *orgs.UpdateOrgRequest) error {
	if s.updateOrg == nil {
		return nil
	}
	return s.updateOrg(ctx, id, updates)
}

func (s *stubService) DeleteOrganization(ctx context.Context, id int64) error {
	if s.deleteOrg == nil {
		return nil
	}
	return s.deleteOrg(ctx, id)
}

func (s *stubService) ListMembers(ctx context.Context, orgID int64) ([]*orgs.OrgMember, error) {
	if s.listMembers == nil {
		return nil, nil
	}
	return s.listMembers(ctx, orgID)
}

func (s *stubService) GetMember(ctx context.Context, orgID, userID int64) (*orgs.OrgMember, error) {
	if s.getMember == nil {
		return nil, orgs.ErrMemberNotFound
	}
	return s.getMember(ctx, orgID, userID)
}

func (s *stubService) AddMember(ctx context.Context, orgID, userID int64, role auth.Role, invitedBy *int64) error {
	if s.addMember == nil {
		return nil
	}
	return s.addMember(ctx, orgID, userID, role, invitedBy)
}

func (s *stubService) UpdateMemberRole(ctx context.Context, orgID, userID int64, role auth.Role) error {
	if s.updateRole == nil {
		return nil
	}
	return s.updateRole(ctx, orgID, userID, role)
}

func (s *stubService) RemoveMember(ctx context.Context, orgID, userID int64) error {
	if s.removeMember == nil {
		return nil
	}
	return s.removeMember(ctx, orgID, userID)
}

func (s *stubService) CreateInvitation(ctx context.Context, invitation *orgs.OrgInvitation) error {
	if s.createInvite == nil {
		return nil
	}
	return s.createInvite(ctx, invitation)
}

func (s *stubService) GetInvitationDetails(ctx context.Context, code string) (*orgs.InvitationDetails, error) {
	if s.inviteDetails == nil {
		return nil, orgs.ErrInvitationNotFound
	}
	return s.inviteDetails(ctx, code)
}

func (s *stubService) ListInvitations(ctx context.Context, orgID int64) ([]*orgs.OrgInvitation, error) {
	if s.listInvites == nil {
		return nil, nil
	}
	return s.listInvites(ctx, orgID)
}

func (s *stubService) AcceptInvitation(ctx context.Context, code string, user *auth.User) (*orgs.AcceptResult, error) {
	if s.acceptInvite == nil {
		return nil, orgs.ErrInvitationNotFound
	}
	return s.acceptInvite(ctx, code, user)
}

func (s *stubService) RevokeInvitation(ctx context.Context, orgID, id int64) error {
	if s.revokeInvite == nil {
		return nil
	}
	return s.revokeInvite(ctx, orgID, id)
}

func (s *stubService) CleanupExpiredInvitations(ctx context.Context, grace time.Duration) (int64, error) {
	if s.cleanupInvites == nil {
		return 0, nil
	}
	return s.cleanupInvites(ctx, grace)
}

// memberRoles is a MembershipSource over a fixed role table
type memberRoles map[int64]auth.Role

func (m memberRoles) GetMember(ctx context.Context, orgID, userID int64) (*orgs.OrgMember, error) {
	role, ok := m[userID]
	if !ok {
		return nil, orgs.ErrMemberNotFound
	}
	return &orgs.OrgMember{OrganizationID: orgID, UserID: userID, Role: role}, nil
}

func evaluatorFor(roles memberRoles) *rbac.Evaluator {
	return rbac.NewEvaluator(roles)
}

// recordingAudit captures events handed to the fire-and-forget sink
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (a *recordingAudit) Log(ctx context.Context, event *audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) Close() error { return nil }

func (a *recordingAudit) actions() []audit.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]audit.EventType, len(a.events))
	for i, e := range a.events {
		actions[i] = e.Action
	}
	return actions
}
