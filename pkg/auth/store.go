package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned when a bearer token does not resolve to
// an active user
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrTokenNotFound is returned when revoking a token the user does not
// hold or that is already revoked
var ErrTokenNotFound = errors.New("token not found or already revoked")

// TokenStore manages API token lifecycle against PostgreSQL
type TokenStore struct {
	db        *sql.DB
	generator *TokenGenerator
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{
		db:        db,
		generator: NewTokenGenerator(),
	}
}

// CreateToken issues a new API token for a user. The plaintext token is
// returned exactly once and never stored.
func (s *TokenStore) CreateToken(ctx context.Context, userID int64, name string, expiresAt *time.Time) (*APIToken, string, error) {
	token, tokenHash, tokenPrefix, err := s.generator.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	apiToken := &APIToken{
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		Name:        name,
		ExpiresAt:   expiresAt,
	}

	query := `
		INSERT INTO api_tokens (user_id, token_hash, token_prefix, name, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, query, userID, tokenHash, tokenPrefix, name, expiresAt).
		Scan(&apiToken.ID, &apiToken.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token: %w", err)
	}

	return apiToken, token, nil
}

// Authenticate resolves a bearer token to its user. Returns
// ErrInvalidToken for unknown, revoked, or expired tokens and for
// deactivated users.
func (s *TokenStore) Authenticate(ctx context.Context, token string) (*User, error) {
	if err := s.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	tokenHash := s.generator.HashToken(token)

	query := `
		SELECT u.id, u.username, u.email, u.full_name, u.is_active, u.created_at, u.updated_at, t.id
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
		  AND t.revoked_at IS NULL
		  AND (t.expires_at IS NULL OR t.expires_at > NOW())
	`
	user := &User{}
	var fullName sql.NullString
	var tokenID int64
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&user.ID, &user.Username, &user.Email, &fullName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &tokenID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	if fullName.Valid {
		user.FullName = fullName.String
	}

	// Best-effort usage tracking, never fails the request
	_, _ = s.db.ExecContext(ctx, `UPDATE api_tokens SET last_used_at = NOW() WHERE id = $1`, tokenID)

	return user, nil
}

// RevokeToken revokes a token
func (s *TokenStore) RevokeToken(ctx context.Context, tokenID, userID int64) error {
	query := `UPDATE api_tokens SET revoked_at = NOW() WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}

	return nil
}
