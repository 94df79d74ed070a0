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

// Test helper to create a new mock service
func newMockService(t *testing.T) (*PostgresService, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	service := NewPostgresService(db)
	return service, mock, db
}

const listMembersQuery = `
		SELECT om.id, om.organization_id, om.user_id, om.role, om.invited_by,
		       om.joined_at, om.created_at, u.username, u.email, u.full_name
		FROM organization_members om
		JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = $1
		ORDER BY om.created_at ASC
	`

func TestListMembers(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	t.Run("success with multiple members", func(t *testing.T) {
		orgID := int64(1)
		now := time.Now()
		invitedBy := int64(2)

		rows := sqlmock.NewRows([]string{
			"id", "organization_id", "user_id", "role", "invited_by", "joined_at", "created_at",
			"username", "email", "full_name",
		}).
			AddRow(1, orgID, 10, auth.RoleOwner, nil, now, now, "founder", "founder@example.com", "Org Founder").
			AddRow(2, orgID, 11, auth.RoleAdmin, invitedBy, now, now, "admin_user", "admin@example.com", "Admin User").
			AddRow(3, orgID, 12, auth.RoleMember, invitedBy, now, now, "member_user", "member@example.com", sql.NullString{})

		mock.ExpectQuery(regexp.QuoteMeta(listMembersQuery)).
			WithArgs(orgID).
			WillReturnRows(rows)

		members, err := service.ListMembers(context.Background(), orgID)
		require.NoError(t, err)
		assert.Len(t, members, 3)

		// Check first member
		assert.Equal(t, int64(1), members[0].ID)
		assert.Equal(t, orgID, members[0].OrganizationID)
		assert.Equal(t, int64(10), members[0].UserID)
		assert.Equal(t, auth.RoleOwner, members[0].Role)
		assert.Equal(t, "founder", members[0].Username)
		assert.Equal(t, "founder@example.com", members[0].Email)
		assert.Nil(t, members[0].InvitedBy)

		// Check third member (null full name)
		assert.Equal(t, "", members[2].FullName)
		require.NotNil(t, members[2].InvitedBy)
		assert.Equal(t, invitedBy, *members[2].InvitedBy)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result", func(t *testing.T) {
		orgID := int64(2)

		rows := sqlmock.NewRows([]string{
			"id", "organization_id", "user_id", "role", "invited_by", "joined_at", "created_at",
			"username", "email", "full_name",
		})

		mock.ExpectQuery(regexp.QuoteMeta(listMembersQuery)).
			WithArgs(orgID).
			WillReturnRows(rows)

		members, err := service.ListMembers(context.Background(), orgID)
		require.NoError(t, err)
		assert.Empty(t, members)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetMember(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
		SELECT om.id, om.organization_id, om.user_id, om.role, om.invited_by,
		       om.joined_at, om.created_at, u.username, u.email, u.full_name
		FROM organization_members om
		JOIN users u ON u.id = om.user_id
		WHERE om.organization_id = $1 AND om.user_id = $2
	`)

	t.Run("found", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows([]string{
			"id", "organization_id", "user_id", "role", "invited_by", "joined_at", "created_at",
			"username", "email", "full_name",
		}).AddRow(5, 1, 10, auth.RoleAdmin, nil, now, now, "admin_user", "admin@example.com", "Admin User")

		mock.ExpectQuery(query).WithArgs(int64(1), int64(10)).WillReturnRows(rows)

		member, err := service.GetMember(context.Background(), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, member.Role)
		assert.Equal(t, "Admin User", member.FullName)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(1), int64(99)).WillReturnError(sql.ErrNoRows)

		member, err := service.GetMember(context.Background(), 1, 99)
		assert.ErrorIs(t, err, ErrMemberNotFound)
		assert.Nil(t, member)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddMember(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`
		INSERT INTO organization_members (organization_id, user_id, role, invited_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`)

	t.Run("success", func(t *testing.T) {
		invitedBy := int64(2)
		mock.ExpectExec(query).
			WithArgs(int64(1), int64(10), auth.RoleMember, &invitedBy).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := service.AddMember(context.Background(), 1, 10, auth.RoleMember, &invitedBy)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already a member", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(1), int64(10), auth.RoleMember, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.AddMember(context.Background(), 1, 10, auth.RoleMember, nil)
		assert.ErrorIs(t, err, ErrMemberExists)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateMemberRole(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`UPDATE organization_members SET role = $1 WHERE organization_id = $2 AND user_id = $3`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(auth.RoleAdmin, int64(1), int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.UpdateMemberRole(context.Background(), 1, 10, auth.RoleAdmin)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(auth.RoleAdmin, int64(1), int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.UpdateMemberRole(context.Background(), 1, 99, auth.RoleAdmin)
		assert.ErrorIs(t, err, ErrMemberNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveMember(t *testing.T) {
	service, mock, db := newMockService(t)
	defer db.Close()

	query := regexp.QuoteMeta(`DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(1), int64(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := service.RemoveMember(context.Background(), 1, 10)
		require.NoError(t, err)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(int64(1), int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := service.RemoveMember(context.Background(), 1, 99)
		assert.ErrorIs(t, err, ErrMemberNotFound)

		require.NoError(t, mock.ExpectationsWereMet())
	})
}
