package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/panelkit/panel/internal/platform/db"
)

// Repository reads the account→role→menu graph.
type Repository interface {
	RoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error)
	RoleValues(ctx context.Context, roleIDs []int64) ([]string, error)
	PermissionsByRoles(ctx context.Context, roleIDs []int64) ([]string, error)
	AllPermissions(ctx context.Context) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *sql.DB
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn *sql.DB) *PGRepository {
	return &PGRepository{db: conn}
}

// RoleIDsByAccount lists the roles assigned to an account.
func (r *PGRepository) RoleIDsByAccount(ctx context.Context, accountID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id FROM account_roles WHERE account_id = $1 ORDER BY role_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("rbac: role ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("rbac: scan role id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RoleValues returns the value tokens of the given roles.
func (r *PGRepository) RoleValues(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}
	query := `SELECT value FROM roles WHERE id IN (` + db.Placeholders(1, len(roleIDs)) + `) ORDER BY id`
	return r.queryStrings(ctx, "role values", query, db.Int64Args(roleIDs)...)
}

// PermissionsByRoles returns the raw permission fields of the enabled menu and permission
// nodes linked to the given roles.
func (r *PGRepository) PermissionsByRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}
	query := `SELECT m.permission
		FROM menus m
		JOIN role_menus rm ON rm.menu_id = m.id
		WHERE rm.role_id IN (` + db.Placeholders(1, len(roleIDs)) + `)
		  AND m.type IN (1, 2)
		  AND m.status = 1
		  AND m.permission IS NOT NULL
		  AND m.permission <> ''
		ORDER BY m.order_no, m.id`
	return r.queryStrings(ctx, "permissions by roles", query, db.Int64Args(roleIDs)...)
}

// AllPermissions returns every permission field in the menu table.
func (r *PGRepository) AllPermissions(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, "all permissions", `SELECT permission FROM menus
		WHERE type IN (1, 2) AND permission IS NOT NULL AND permission <> ''
		ORDER BY order_no, id`)
}

func (r *PGRepository) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: %s: %w", op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("rbac: scan %s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: %s: %w", op, err)
	}
	return out, nil
}

var _ Repository = (*PGRepository)(nil)
