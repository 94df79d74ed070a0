package orgs

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/budgetup/budgetup/pkg/auth"
)

// DefaultInvitationTTL is applied when a create request omits an expiry.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// codePattern matches well-formed invitation codes. Input that fails
// this never reaches the database.
var codePattern = regexp.MustCompile(`^[A-Z0-9-]{6,50}$`)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInvitationCode produces a random code like "7XK2-M4PQ-9RWD".
// The alphabet drops easily confused characters (0/O, 1/I/L).
func GenerateInvitationCode() (string, error) {
	const groups = 3
	const groupLen = 4

	raw := make([]byte, groups*groupLen)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate invitation code: %w", err)
	}

	parts := make([]string, groups)
	for g := 0; g < groups; g++ {
		chunk := make([]byte, groupLen)
		for i := 0; i < groupLen; i++ {
			chunk[i] = codeAlphabet[int(raw[g*groupLen+i])%len(codeAlphabet)]
		}
		parts[g] = string(chunk)
	}
	return strings.Join(parts, "-"), nil
}

// ValidateCodeFormat checks a code against the accepted shape without
// touching the database.
func ValidateCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// CreateInvitation creates a new invitation with a fresh single-use code
func (s *PostgresService) CreateInvitation(ctx context.Context, invitation *OrgInvitation) error {
	code, err := GenerateInvitationCode()
	if err != nil {
		return err
	}
	invitation.Code = code
	invitation.Email = strings.ToLower(strings.TrimSpace(invitation.Email))

	if invitation.InvitedAt.IsZero() {
		invitation.InvitedAt = time.Now()
	}
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = invitation.InvitedAt.Add(DefaultInvitationTTL)
	}

	query := `
		INSERT INTO org_invitations (org_id, email, role, code, invited_by, invited_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query, invitation.OrgID, invitation.Email, invitation.Role,
		invitation.Code, invitation.InvitedBy, invitation.InvitedAt, invitation.ExpiresAt).
		Scan(&invitation.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetInvitationDetails retrieves the public view of an invitation by
// code. It is a pure read: used and expired invitations still resolve,
// and redemption state is only judged at accept time.
func (s *PostgresService) GetInvitationDetails(ctx context.Context, code string) (*InvitationDetails, error) {
	if !ValidateCodeFormat(code) {
		return nil, ErrInvalidCode
	}

	query := `
		SELECT i.org_id, o.name, i.email, i.role, i.expires_at
		FROM org_invitations i
		JOIN organizations o ON o.id = i.org_id
		WHERE i.code = $1
	`
	details := &InvitationDetails{}
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&details.OrgID, &details.OrgName, &details.Email, &details.Role,
		&details.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	return details, nil
}

// ListInvitations lists pending invitations for an organization. Used
// invitations are excluded; expired but unredeemed ones remain visible
// so admins can see what lapsed.
func (s *PostgresService) ListInvitations(ctx context.Context, orgID int64) ([]*OrgInvitation, error) {
	query := `
		SELECT id, org_id, email, role, code, invited_by, invited_at, expires_at, used_at, used_by
		FROM org_invitations
		WHERE org_id = $1 AND used_at IS NULL
		ORDER BY invited_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*OrgInvitation
	for rows.Next() {
		invitation := &OrgInvitation{}
		var usedAt sql.NullTime
		var usedBy sql.NullInt64
		if err := rows.Scan(
			&invitation.ID, &invitation.OrgID, &invitation.Email, &invitation.Role,
			&invitation.Code, &invitation.InvitedBy, &invitation.InvitedAt, &invitation.ExpiresAt,
			&usedAt, &usedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		if usedAt.Valid {
			invitation.UsedAt = &usedAt.Time
		}
		if usedBy.Valid {
			invitation.UsedBy = &usedBy.Int64
		}
		invitations = append(invitations, invitation)
	}

	return invitations, rows.Err()
}

// AcceptInvitation redeems an invitation code for the given user and
// enrolls them in the organization. All checks and both writes happen in
// one transaction; the final guarded update makes the code single-use
// even under concurrent redemption.
func (s *PostgresService) AcceptInvitation(ctx context.Context, code string, user *auth.User) (*AcceptResult, error) {
	if !ValidateCodeFormat(code) {
		return nil, ErrInvalidCode
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, org_id, email, role, expires_at, used_at
		FROM org_invitations
		WHERE code = $1
		FOR UPDATE
	`
	var id, orgID int64
	var email string
	var role auth.Role
	var expiresAt time.Time
	var usedAt sql.NullTime

	err = tx.QueryRowContext(ctx, query, code).Scan(&id, &orgID, &email, &role, &expiresAt, &usedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if usedAt.Valid {
		return nil, ErrInvitationUsed
	}
	// Expiry is inclusive: a code is spent the instant expires_at arrives.
	if !time.Now().Before(expiresAt) {
		return nil, ErrInvitationExpired
	}
	if !strings.EqualFold(strings.TrimSpace(user.Email), email) {
		return nil, ErrEmailMismatch
	}

	var exists bool
	memberCheck := `SELECT EXISTS (SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)`
	if err := tx.QueryRowContext(ctx, memberCheck, orgID, user.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	// The conflict guard catches the user being enrolled through another
	// code between the existence check and this insert.
	insertMember := `
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		SELECT $1, $2, $3, invited_by FROM org_invitations WHERE id = $4
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`
	inserted, err := tx.ExecContext(ctx, insertMember, orgID, user.ID, role, id)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	insertedRows, err := inserted.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if insertedRows == 0 {
		return nil, ErrAlreadyMember
	}

	// The used_at IS NULL guard loses the race to whichever transaction
	// committed first; zero rows means the code was spent underneath us.
	markUsed := `UPDATE org_invitations SET used_at = NOW(), used_by = $1 WHERE id = $2 AND used_at IS NULL`
	result, err := tx.ExecContext(ctx, markUsed, user.ID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrInvitationUsed
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &AcceptResult{OrgID: orgID, UserID: user.ID, Role: role}, nil
}

// RevokeInvitation deletes an unredeemed invitation
func (s *PostgresService) RevokeInvitation(ctx context.Context, orgID, id int64) error {
	query := `DELETE FROM org_invitations WHERE id = $1 AND org_id = $2 AND used_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvitationNotFound
	}

	return nil
}

// CleanupExpiredInvitations removes unredeemed invitations that expired
// more than grace ago. Recently expired invitations stay visible to
// admins in listings.
func (s *PostgresService) CleanupExpiredInvitations(ctx context.Context, grace time.Duration) (int64, error) {
	query := `DELETE FROM org_invitations WHERE used_at IS NULL AND expires_at < NOW() - $1::interval`
	result, err := s.db.ExecContext(ctx, query, fmt.Sprintf("%d seconds", int64(grace.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
