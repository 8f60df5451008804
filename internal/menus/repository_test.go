package menus

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRepository(conn), mock
}

var columns = []string{"id", "parent_id", "name", "path", "permission", "type", "icon", "order_no", "component", "status", "created_at", "updated_at"}

func TestListScansNullableColumns(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("FROM menus ORDER BY order_no, id").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), nil, "System", "/system", nil, 0, "", 0, "", 1, now, now).
			AddRow(int64(3), int64(1), "List", "", "system:user:list", 2, "", 1, "", 1, now, now))

	menus, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, menus, 2)
	assert.Nil(t, menus[0].ParentID)
	assert.Nil(t, menus[0].Permission)
	assert.Equal(t, rbac.MenuTypeGroup, menus[0].Type)
	require.NotNil(t, menus[1].ParentID)
	assert.Equal(t, int64(1), *menus[1].ParentID)
	assert.Equal(t, "system:user:list", *menus[1].Permission)
	assert.True(t, menus[1].GrantsPermissions())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListNavigableByRoles(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("WHERE type IN \\(0, 1\\) AND status = 1\\s+AND id IN \\(SELECT menu_id FROM role_menus WHERE role_id IN \\(\\$1, \\$2\\)\\)").
		WithArgs(int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows(columns))

	menus, err := repo.ListNavigable(context.Background(), []int64{2, 3})
	require.NoError(t, err)
	assert.Empty(t, menus)

	menus, err = repo.ListNavigable(context.Background(), []int64{})
	require.NoError(t, err)
	assert.Empty(t, menus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingMenu(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM menus WHERE id = \\$1").WithArgs(int64(4)).WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), 4)
	assert.ErrorIs(t, err, shared.ErrMenuNotFound)
}

func TestCreateMissingParent(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO menus").WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

	parent := int64(9)
	_, err := repo.Create(context.Background(), rbac.Menu{ParentID: &parent, Name: "x", Type: rbac.MenuTypeMenu})
	assert.ErrorIs(t, err, shared.ErrParentMenuNotFound)
}

func TestDeleteRemovesLinksFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM role_menus WHERE menu_id IN \\(\\$1, \\$2\\)").WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM menus WHERE id IN \\(\\$1, \\$2\\)").WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), []int64{1, 2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindChildMenusUsesRecursiveQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	mock.ExpectQuery("WITH RECURSIVE tree AS").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(2), int64(1), "Users", "", nil, 1, "", 0, "", 1, now, now))

	children, err := repo.FindChildMenus(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, int64(2), children[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
