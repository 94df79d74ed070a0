package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/budgetup/budgetup/pkg/auth"
)

// ListMembers retrieves all members of an organization
func (s *PostgresService) ListMembers(ctx context.Context, orgID int64) ([]*OrgMember, error) {
	query := `
		SELECT om.id, om.organization_id, om.user_id, om.role, om.invited_by,
		       om.joined_at, om.created_at, u.username, u.email, u.full_name
		FROM organization_members om
		JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = $1
		ORDER BY om.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*OrgMember
	for rows.Next() {
		member := &OrgMember{}
		var fullName sql.NullString
		if err := rows.Scan(
			&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
			&member.InvitedBy, &member.JoinedAt, &member.CreatedAt,
			&member.Username, &member.Email, &fullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if fullName.Valid {
			member.FullName = fullName.String
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// GetMember retrieves a specific member
func (s *PostgresService) GetMember(ctx context.Context, orgID, userID int64) (*OrgMember, error) {
	query := `
		SELECT om.id, om.organization_id, om.user_id, om.role, om.invited_by,
		       om.joined_at, om.created_at, u.username, u.email, u.full_name
		FROM organization_members om
		JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = $1 AND om.user_id = $2
	`
	member := &OrgMember{}
	var fullName sql.NullString
	err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(
		&member.ID, &member.OrganizationID, &member.UserID, &member.Role,
		&member.InvitedBy, &member.JoinedAt, &member.CreatedAt,
		&member.Username, &member.Email, &fullName,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	if fullName.Valid {
		member.FullName = fullName.String
	}

	return member, nil
}

// AddMember adds a user to an organization
func (s *PostgresService) AddMember(ctx context.Context, orgID, userID int64, role auth.Role, invitedBy *int64) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, orgID, userID, role, invitedBy)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberExists
	}

	return nil
}

// UpdateMemberRole updates a member's role
func (s *PostgresService) UpdateMemberRole(ctx context.Context, orgID, userID int64, role auth.Role) error {
	query := `UPDATE organization_members SET role = $1 WHERE organization_id = $2 AND user_id = $3`
	result, err := s.db.ExecContext(ctx, query, role, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// RemoveMember removes a user from an organization
func (s *PostgresService) RemoveMember(ctx context.Context, orgID, userID int64) error {
	query := `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	result, err := s.db.ExecContext(ctx, query, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}

	return nil
}
