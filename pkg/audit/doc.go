// Package audit provides an asynchronous audit trail of security
// relevant actions: organization changes, membership changes, and the
// invitation lifecycle.
//
// Events are fire-and-forget: Log enqueues onto a buffered channel and
// a background worker persists them. A failed or dropped write is
// counted and logged but never surfaces to the request that caused the
// event.
//
//	auditLogger.Log(ctx, &audit.Event{
//		OrganizationID: &orgID,
//		ActorID:        &actorID,
//		Action:         audit.EventTypeInvitationAccepted,
//		Resource:       audit.ResourceTypeInvitation,
//		RecordID:       strconv.FormatInt(invitationID, 10),
//	})
package audit
