package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Organization events
	EventTypeOrgCreated EventType = "org.created"
	EventTypeOrgUpdated EventType = "org.updated"
	EventTypeOrgDeleted EventType = "org.deleted"

	// Membership events
	EventTypeMemberAdded       EventType = "member.added"
	EventTypeMemberRoleChanged EventType = "member.role_changed"
	EventTypeMemberRemoved     EventType = "member.removed"

	// Invitation events
	EventTypeInvitationCreated  EventType = "invitation.created"
	EventTypeInvitationAccepted EventType = "invitation.accepted"
	EventTypeInvitationRevoked  EventType = "invitation.revoked"

	// Authorization events
	EventTypePermissionDenied EventType = "authz.access_denied"

	// Authentication events
	EventTypeTokenCreated EventType = "auth.token_create"
	EventTypeTokenRevoked EventType = "auth.token_revoke"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType names the resource an event touched
type ResourceType string

const (
	ResourceTypeOrganization ResourceType = "organization"
	ResourceTypeMember       ResourceType = "member"
	ResourceTypeInvitation   ResourceType = "invitation"
	ResourceTypeToken        ResourceType = "token"
	ResourceTypePermission   ResourceType = "permission"
)

// Event represents a single audit log entry
type Event struct {
	ID             int64                  `json:"id"`
	OrganizationID *int64                 `json:"organization_id,omitempty"`
	ActorID        *int64                 `json:"actor_id,omitempty"`
	Action         EventType              `json:"action"`
	Resource       ResourceType           `json:"resource"`
	RecordID       string                 `json:"record_id,omitempty"`
	Result         EventStatus            `json:"result"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ListFilter narrows an audit log listing
type ListFilter struct {
	OrganizationID *int64
	ActorID        *int64
	Action         EventType
	Resource       ResourceType
	Since          *time.Time
	Until          *time.Time
	Limit          int
	Offset         int
}
