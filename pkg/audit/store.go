package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const defaultListLimit = 50

// Store reads audit logs back out of PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List returns audit events matching the filter, newest first
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	addCondition := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.OrganizationID != nil {
		addCondition("organization_id = $%d", *filter.OrganizationID)
	}
	if filter.ActorID != nil {
		addCondition("actor_id = $%d", *filter.ActorID)
	}
	if filter.Action != "" {
		addCondition("action = $%d", filter.Action)
	}
	if filter.Resource != "" {
		addCondition("resource = $%d", filter.Resource)
	}
	if filter.Since != nil {
		addCondition("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		addCondition("created_at < $%d", *filter.Until)
	}

	query := `SELECT id, organization_id, actor_id, action, resource, record_id, result, metadata, created_at FROM audit_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argPos)
	args = append(args, limit)
	argPos++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event := &Event{}
		var recordID sql.NullString
		var metadataJSON []byte
		if err := rows.Scan(
			&event.ID, &event.OrganizationID, &event.ActorID, &event.Action,
			&event.Resource, &recordID, &event.Result, &metadataJSON, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if recordID.Valid {
			event.RecordID = recordID.String
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CleanupOldLogs deletes audit logs older than the retention window
func (s *Store) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`
	result, err := s.db.ExecContext(ctx, query, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
