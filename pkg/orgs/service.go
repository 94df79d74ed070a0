package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/budgetup/budgetup/pkg/auth"
)

// DefaultCurrency is applied when a create request omits one.
const DefaultCurrency = "USD"

// PostgresService implements the Service interface using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateOrganization creates a new organization and enrolls the creator
// as its owner in a single transaction.
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization) error {
	if org.Currency == "" {
		org.Currency = DefaultCurrency
	}
	org.Currency = strings.ToUpper(org.Currency)
	if org.Status == "" {
		org.Status = OrgStatusActive
	}
	org.IsActive = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO organizations (name, description, currency, created_by, status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query, org.Name, org.Description, org.Currency,
		org.CreatedBy, org.Status, org.IsActive).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	// The creator becomes the owner.
	memberQuery := `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, memberQuery, org.ID, org.CreatedBy, auth.RoleOwner); err != nil {
		return fmt.Errorf("failed to add owner membership: %w", err)
	}

	return tx.Commit()
}

// GetOrganization retrieves an organization by ID
func (s *PostgresService) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	query := `
		SELECT id, name, description, currency, created_by, status, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1 AND is_active = true
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Description, &org.Currency,
		&org.CreatedBy, &org.Status, &org.IsActive,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListOrganizations lists organizations the user belongs to
func (s *PostgresService) ListOrganizations(ctx context.Context, userID int64) ([]*Organization, error) {
	query := `
		SELECT o.id, o.name, o.description, o.currency, o.created_by, o.status,
		       o.is_active, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = $1 AND o.is_active = true
		ORDER BY o.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(
			&org.ID, &org.Name, &org.Description, &org.Currency,
			&org.CreatedBy, &org.Status, &org.IsActive,
			&org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// UpdateOrganization updates an organization
func (s *PostgresService) UpdateOrganization(ctx context.Context, id int64, updates *UpdateOrgRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	argPos := 1

	if updates.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argPos))
		args = append(args, *updates.Name)
		argPos++
	}
	if updates.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argPos))
		args = append(args, *updates.Description)
		argPos++
	}
	if updates.Currency != nil {
		setClauses = append(setClauses, fmt.Sprintf("currency = $%d", argPos))
		args = append(args, strings.ToUpper(*updates.Currency))
		argPos++
	}

	if len(setClauses) == 0 {
		return nil // Nothing to update
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE organizations SET %s WHERE id = $%d AND is_active = true",
		strings.Join(setClauses, ", "), argPos)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrgNotFound
	}

	return nil
}

// DeleteOrganization soft deletes an organization
func (s *PostgresService) DeleteOrganization(ctx context.Context, id int64) error {
	query := `UPDATE organizations SET status = $1, is_active = false, updated_at = NOW() WHERE id = $2 AND is_active = true`
	result, err := s.db.ExecContext(ctx, query, OrgStatusDeleted, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrgNotFound
	}

	return nil
}
