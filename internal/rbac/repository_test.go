package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRepository(conn), mock
}

func TestRoleIDsByAccount(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT role_id FROM account_roles WHERE account_id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"role_id"}).AddRow(int64(2)).AddRow(int64(3)))

	ids, err := repo.RoleIDsByAccount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleValues(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT value FROM roles WHERE id IN \\(\\$1, \\$2\\)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("admin").AddRow("user"))

	values, err := repo.RoleValues(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user"}, values)

	values, err = repo.RoleValues(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionsByRoles(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT m.permission\\s+FROM menus m\\s+JOIN role_menus rm").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).AddRow("system:user:list,system:user:read"))

	perms, err := repo.PermissionsByRoles(context.Background(), []int64{2})
	require.NoError(t, err)
	assert.Equal(t, []string{"system:user:list,system:user:read"}, perms)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionsByRolesError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")
	mock.ExpectQuery("SELECT m.permission").WillReturnError(boom)

	_, err := repo.PermissionsByRoles(context.Background(), []int64{2})
	require.ErrorIs(t, err, boom)
}

func TestAllPermissions(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT permission FROM menus").
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).AddRow("a").AddRow("b,c"))

	perms, err := repo.AllPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c"}, perms)
}
