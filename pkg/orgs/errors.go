package orgs

import "errors"

// Sentinel errors returned by the service layer. The HTTP layer maps
// these onto status codes; anything else is treated as internal.
var (
	ErrOrgNotFound        = errors.New("organization not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrMemberExists       = errors.New("member already exists")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationUsed     = errors.New("invitation already used")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrEmailMismatch      = errors.New("invitation was issued for a different email")
	ErrAlreadyMember      = errors.New("user is already a member of this organization")
	ErrInvalidCode        = errors.New("invalid invitation code")
)
