package orgs

import (
	"context"
	"time"

	"github.com/budgetup/budgetup/pkg/auth"
)

// OrgStatus represents organization status
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
	OrgStatusDeleted   OrgStatus = "deleted"
)

// Organization represents a financial workspace shared by a team
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Currency    string    `json:"currency"`
	CreatedBy   int64     `json:"created_by"`
	Status      OrgStatus `json:"status"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrgMember represents an organization member with user details
type OrgMember struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	UserID         int64     `json:"user_id"`
	Role           auth.Role `json:"role"`
	InvitedBy      *int64    `json:"invited_by,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
	CreatedAt      time.Time `json:"created_at"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
}

// OrgInvitation represents a single-use, time-boxed invitation to join
// an organization.
type OrgInvitation struct {
	ID        int64      `json:"id"`
	OrgID     int64      `json:"org_id"`
	Email     string     `json:"email"`
	Role      auth.Role  `json:"role"`
	Code      string     `json:"code,omitempty"`
	InvitedBy int64      `json:"invited_by"`
	InvitedAt time.Time  `json:"invited_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	UsedBy    *int64     `json:"used_by,omitempty"`
}

// IsUsed reports whether the invitation has already been redeemed.
func (i *OrgInvitation) IsUsed() bool {
	return i.UsedAt != nil
}

// IsExpired reports whether the invitation expiry has arrived. The
// boundary itself counts as expired.
func (i *OrgInvitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// InvitationDetails is the public view of an invitation, safe to show
// before the viewer proves membership. The code itself is never echoed.
type InvitationDetails struct {
	OrgID     int64     `json:"org_id"`
	OrgName   string    `json:"org_name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AcceptResult describes a successful invitation redemption
type AcceptResult struct {
	OrgID  int64     `json:"org_id"`
	UserID int64     `json:"user_id"`
	Role   auth.Role `json:"role"`
}

// CreateOrgRequest represents request to create an organization
type CreateOrgRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// UpdateOrgRequest represents request to update an organization
type UpdateOrgRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Currency    *string `json:"currency,omitempty"`
}

// CreateInvitationRequest represents request to invite a member
type CreateInvitationRequest struct {
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	ExpiresIn string    `json:"expires_in,omitempty"` // Go duration, e.g. "72h"
}

// UpdateMemberRequest represents request to update a member's role
type UpdateMemberRequest struct {
	Role auth.Role `json:"role"`
}

// Service defines the interface for organization management
type Service interface {
	// Organization CRUD
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, id int64, updates *UpdateOrgRequest) error
	DeleteOrganization(ctx context.Context, id int64) error

	// Member management
	ListMembers(ctx context.Context, orgID int64) ([]*OrgMember, error)
	GetMember(ctx context.Context, orgID, userID int64) (*OrgMember, error)
	AddMember(ctx context.Context, orgID, userID int64, role auth.Role, invitedBy *int64) error
	UpdateMemberRole(ctx context.Context, orgID, userID int64, role auth.Role) error
	RemoveMember(ctx context.Context, orgID, userID int64) error

	// Invitation lifecycle
	CreateInvitation(ctx context.Context, invitation *OrgInvitation) error
	GetInvitationDetails(ctx context.Context, code string) (*InvitationDetails, error)
	ListInvitations(ctx context.Context, orgID int64) ([]*OrgInvitation, error)
	AcceptInvitation(ctx context.Context, code string, user *auth.User) (*AcceptResult, error)
	RevokeInvitation(ctx context.Context, orgID, id int64) error
	CleanupExpiredInvitations(ctx context.Context, grace time.Duration) (int64, error)
}
