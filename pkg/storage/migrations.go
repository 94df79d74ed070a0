package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(255),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_email ON users(LOWER(email));
			`,
		},
		{
			Version:     2,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					token_hash VARCHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(16) NOT NULL,
					expires_at TIMESTAMP,
					last_used_at TIMESTAMP,
					revoked_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_api_tokens_user_id ON api_tokens(user_id);
				CREATE INDEX idx_api_tokens_token_hash ON api_tokens(token_hash);
			`,
		},
		{
			Version:     3,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					currency CHAR(3) NOT NULL DEFAULT 'USD',
					created_by BIGINT NOT NULL REFERENCES users(id),
					status VARCHAR(50) NOT NULL DEFAULT 'active',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_organizations_created_by ON organizations(created_by);
			`,
		},
		{
			Version:     4,
			Description: "Create organization_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organization_members (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(50) NOT NULL,
					invited_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(organization_id, user_id)
				);

				CREATE INDEX idx_org_members_user_id ON organization_members(user_id);
				CREATE INDEX idx_org_members_org_id ON organization_members(organization_id);
			`,
		},
		{
			Version:     5,
			Description: "Create org_invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS org_invitations (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					email VARCHAR(255) NOT NULL,
					role VARCHAR(50) NOT NULL,
					code VARCHAR(50) NOT NULL UNIQUE,
					invited_by BIGINT NOT NULL REFERENCES users(id),
					invited_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP NOT NULL,
					used_at TIMESTAMP,
					used_by BIGINT REFERENCES users(id)
				);

				CREATE INDEX idx_org_invitations_org_id ON org_invitations(org_id);
				CREATE INDEX idx_org_invitations_code ON org_invitations(code);
				CREATE INDEX idx_org_invitations_expires_at ON org_invitations(expires_at);
			`,
		},
		{
			Version:     6,
			Description: "Create audit_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id BIGSERIAL PRIMARY KEY,
					organization_id BIGINT REFERENCES organizations(id) ON DELETE CASCADE,
					actor_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
					action VARCHAR(255) NOT NULL,
					resource VARCHAR(255) NOT NULL,
					record_id VARCHAR(255),
					result VARCHAR(50) NOT NULL DEFAULT 'success',
					metadata JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_logs_org_id ON audit_logs(organization_id);
				CREATE INDEX idx_audit_logs_actor_id ON audit_logs(actor_id);
				CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
