package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/shared"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRepository(conn), mock
}

var userColumns = []string{"id", "username", "nickname", "email", "status", "created_at", "updated_at"}

func TestListAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	status := 1
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM accounts WHERE \\(username ILIKE \\$1 OR nickname ILIKE \\$1\\) AND status = \\$2").
		WithArgs("%bo%", 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, username, nickname, email, status, created_at, updated_at\\s+FROM accounts WHERE .* LIMIT \\$3 OFFSET \\$4").
		WithArgs("%bo%", 1, 20, 0).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(2), "bob", "Bob", "", 1, now, now))

	users, total, err := repo.List(context.Background(), ListFilter{Keyword: " bo ", Status: &status}, shared.Page{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM accounts WHERE id = \\$1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.Get(context.Background(), 9)
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsRolesInTx(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs("bob", "hash", "Bob", "", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec("INSERT INTO account_roles").WithArgs(int64(5), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), NewUser{Username: "bob", PasswordHash: "hash", Nickname: "Bob", Status: 1, RoleIDs: []int64{2}})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO accounts").WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), NewUser{Username: "bob"})
	assert.ErrorIs(t, err, shared.ErrAccountExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRolesMapsMissingRole(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM account_roles WHERE account_id = \\$1").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO account_roles").WithArgs(int64(5), int64(42)).WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})
	mock.ExpectRollback()

	err := repo.ReplaceRoles(context.Background(), 5, []int64{42})
	assert.ErrorIs(t, err, shared.ErrRoleNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE accounts SET status = \\$1, updated_at = NOW\\(\\) WHERE id IN \\(\\$2, \\$3\\)").
		WithArgs(0, int64(4), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateStatus(context.Background(), []int64{4, 5}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldersOfRole(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT account_id FROM account_roles WHERE role_id = \\$1 AND account_id IN \\(\\$2, \\$3\\)").
		WithArgs(int64(1), int64(1), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(int64(1)))

	ids, err := repo.HoldersOfRole(context.Background(), 1, []int64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordMissingAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE accounts SET password_hash").WithArgs(int64(9), "h").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), 9, "h")
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
