package orgs

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/budgetup/budgetup/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lockInvitationQuery = `
		SELECT id, org_id, email, role, expires_at, used_at
		FROM org_invitations
		WHERE code = $1
		FOR UPDATE
	`
	memberExistsQuery = `SELECT EXISTS (SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)`
	insertMemberQuery = `
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		SELECT $1, $2, $3, invited_by FROM org_invitations WHERE id = $4
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`
	markUsedQuery = `UPDATE org_invitations SET used_at = NOW(), used_by = $1 WHERE id = $2 AND used_at IS NULL`
)

func TestGenerateInvitationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateInvitationCode()
		require.NoError(t, err)
		assert.True(t, ValidateCodeFormat(code), "generated code %q should match the accepted shape", code)
		assert.Len(t, code, 14)
		assert.False(t, seen[code], "codes should not repeat")
		seen[code] = true
	}
}

func TestValidateCodeFormat(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"generated shape", "7XK2-M4PQ-9RWD", true},
		{"plain alphanumeric", "ABC123", true},
		{"too short", "AB-1", false},
		{"lowercase rejected", "abc123def", false},
		{"whitespace rejected", "ABC 123", false},
		{"special characters rejected", "ABC_123!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCodeFormat(tt.code))
		})
	}
}

func TestInvitationExpiryBoundary(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := &OrgInvitation{ExpiresAt: expires}

	assert.False(t, inv.IsExpired(expires.Add(-time.Nanosecond)))
	assert.True(t, inv.IsExpired(expires), "the expiry instant itself counts as expired")
	assert.True(t, inv.IsExpired(expires.Add(time.Nanosecond)))
}

func TestCreateInvitation(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
		INSERT INTO org_invitations (org_id, email, role, code, invited_by, invited_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`)

	t.Run("success with defaults", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(1), "teammate@example.com", auth.RoleMember,
				sqlmock.AnyArg(), int64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		inv := &OrgInvitation{
			OrgID:     1,
			Email:     "  Teammate@Example.COM ",
			Role:      auth.RoleMember,
			InvitedBy: 2,
		}
		err := service.CreateInvitation(context.Background(), inv)
		require.NoError(t, err)

		assert.Equal(t, int64(42), inv.ID)
		assert.Equal(t, "teammate@example.com", inv.Email)
		assert.True(t, ValidateCodeFormat(inv.Code))
		assert.False(t, inv.InvitedAt.IsZero())
		assert.WithinDuration(t, inv.InvitedAt.Add(DefaultInvitationTTL), inv.ExpiresAt, time.Second)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("explicit expiry preserved", func(t *testing.T) {
		expires := time.Now().Add(48 * time.Hour)
		mock.ExpectQuery(query).
			WithArgs(int64(1), "teammate@example.com", auth.RoleAdmin,
				sqlmock.AnyArg(), int64(2), sqlmock.AnyArg(), expires).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))

		inv := &OrgInvitation{
			OrgID:     1,
			Email:     "teammate@example.com",
			Role:      auth.RoleAdmin,
			InvitedBy: 2,
			ExpiresAt: expires,
		}
		err := service.CreateInvitation(context.Background(), inv)
		require.NoError(t, err)
		assert.Equal(t, expires, inv.ExpiresAt)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetInvitationDetails(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
		SELECT i.org_id, o.name, i.email, i.role, i.expires_at
		FROM org_invitations i
		JOIN organizations o ON o.id = i.org_id
		WHERE i.code = $1
	`)

	detailsRow := func(expiresAt time.Time) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"org_id", "name", "email", "role", "expires_at"}).
			AddRow(1, "Acme Finance", "teammate@example.com", auth.RoleMember, expiresAt)
	}

	t.Run("pending invitation", func(t *testing.T) {
		expires := time.Now().Add(time.Hour)
		rows := detailsRow(expires)

		mock.ExpectQuery(query).WithArgs("7XK2-M4PQ-9RWD").WillReturnRows(rows)

		details, err := service.GetInvitationDetails(context.Background(), "7XK2-M4PQ-9RWD")
		require.NoError(t, err)
		assert.Equal(t, int64(1), details.OrgID)
		assert.Equal(t, "Acme Finance", details.OrgName)
		assert.Equal(t, auth.RoleMember, details.Role)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed code never hits the database", func(t *testing.T) {
		details, err := service.GetInvitationDetails(context.Background(), "bad code!")
		assert.ErrorIs(t, err, ErrInvalidCode)
		assert.Nil(t, details)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown code", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("AAAA-BBBB-CCCC").WillReturnError(sql.ErrNoRows)

		_, err := service.GetInvitationDetails(context.Background(), "AAAA-BBBB-CCCC")
		assert.ErrorIs(t, err, ErrInvitationNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired invitations still resolve", func(t *testing.T) {
		expires := time.Now().Add(-time.Minute)
		mock.ExpectQuery(query).WithArgs("7XK2-M4PQ-9RWD").WillReturnRows(detailsRow(expires))

		details, err := service.GetInvitationDetails(context.Background(), "7XK2-M4PQ-9RWD")
		require.NoError(t, err)
		assert.WithinDuration(t, expires, details.ExpiresAt, time.Second)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcceptInvitation(t *testing.T) {
	user := &auth.User{ID: 10, Username: "redeemer", Email: "teammate@example.com"}
	code := "7XK2-M4PQ-9RWD"

	lockQuery := regexp.QuoteMeta(lockInvitationQuery)

	pendingRow := func(email string, expiresAt time.Time) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "org_id", "email", "role", "expires_at", "used_at"}).
			AddRow(7, 1, email, auth.RoleMember, expiresAt, nil)
	}

	t.Run("success", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(time.Hour)))
		mock.ExpectQuery(regexp.QuoteMeta(memberExistsQuery)).WithArgs(int64(1), user.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta(insertMemberQuery)).
			WithArgs(int64(1), user.ID, auth.RoleMember, int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta(markUsedQuery)).
			WithArgs(user.ID, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.AcceptInvitation(context.Background(), code, user)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.OrgID)
		assert.Equal(t, user.ID, result.UserID)
		assert.Equal(t, auth.RoleMember, result.Role)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email match is case-insensitive", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mixedCaseUser := &auth.User{ID: 10, Email: "TeamMate@Example.COM"}

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(time.Hour)))
		mock.ExpectQuery(regexp.QuoteMeta(memberExistsQuery)).WithArgs(int64(1), int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta(insertMemberQuery)).
			WithArgs(int64(1), int64(10), auth.RoleMember, int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta(markUsedQuery)).
			WithArgs(int64(10), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		_, err := service.AcceptInvitation(context.Background(), code, mixedCaseUser)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed code short-circuits", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		_, err := service.AcceptInvitation(context.Background(), "lowercase-code", user)
		assert.ErrorIs(t, err, ErrInvalidCode)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown code", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrInvitationNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already used", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		used := time.Now().Add(-time.Hour)
		rows := sqlmock.NewRows([]string{"id", "org_id", "email", "role", "expires_at", "used_at"}).
			AddRow(7, 1, "teammate@example.com", auth.RoleMember, time.Now().Add(time.Hour), used)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).WillReturnRows(rows)
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrInvitationUsed)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(-time.Minute)))
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrInvitationExpired)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email mismatch", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("someone-else@example.com", time.Now().Add(time.Hour)))
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrEmailMismatch)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already a member", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(time.Hour)))
		mock.ExpectQuery(regexp.QuoteMeta(memberExistsQuery)).WithArgs(int64(1), user.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrAlreadyMember)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent enrollment through another code", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(time.Hour)))
		mock.ExpectQuery(regexp.QuoteMeta(memberExistsQuery)).WithArgs(int64(1), user.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta(insertMemberQuery)).
			WithArgs(int64(1), user.ID, auth.RoleMember, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrAlreadyMember)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race surfaces as already used", func(t *testing.T) {
		service, mock, db := newMockService(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(code).
			WillReturnRows(pendingRow("teammate@example.com", time.Now().Add(time.Hour)))
		mock.ExpectQuery(regexp.QuoteMeta(memberExistsQuery)).WithArgs(int64(1), user.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec(regexp.QuoteMeta(insertMemberQuery)).
			WithArgs(int64(1), user.ID, auth.RoleMember, int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta(markUsedQuery)).
			WithArgs(user.ID, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := service.AcceptInvitation(context.Background(), code, user)
		assert.ErrorIs(t, err, ErrInvitationUsed)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRevokeInvitation(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`DELETE FROM org_invitations WHERE id = $1 AND org_id = $2 AND used_at IS NULL`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(7), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RevokeInvitation(context.Background(), 1, 7)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already used or missing", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(8), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.RevokeInvitation(context.Background(), 1, 8)
		assert.ErrorIs(t, err, ErrInvitationNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCleanupExpiredInvitations(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`DELETE FROM org_invitations WHERE used_at IS NULL AND expires_at < NOW() - $1::interval`)

	mock.ExpectExec(query).WithArgs("2592000 seconds").
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := service.CleanupExpiredInvitations(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	require.NoError(t, mock.ExpectationsWereMet())
}
