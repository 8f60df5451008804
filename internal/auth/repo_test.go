package auth_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/shared"
)

func newMockRepo(t *testing.T) (*auth.PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return auth.NewRepository(db), mock
}

var accountCols = []string{"id", "username", "password_hash", "nickname", "email", "status", "created_at", "updated_at"}

func TestFindByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, "alice", "hash", "Alice", "a@x.io", 1, now, now))

	account, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
	assert.Equal(t, "hash", account.PasswordHash)
	assert.True(t, account.Enabled())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM accounts WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
}

func TestCreateAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("bob", "hash", "", "", auth.StatusEnabled).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))

	account := &auth.Account{Username: "bob", PasswordHash: "hash", Status: auth.StatusEnabled}
	require.NoError(t, repo.Create(context.Background(), account))
	assert.Equal(t, int64(7), account.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &auth.Account{Username: "bob"})
	assert.ErrorIs(t, err, shared.ErrAccountExists)
}

func TestUpdatePasswordMissingAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE accounts SET password_hash`)).
		WithArgs(int64(3), "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), 3, "hash")
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
}
