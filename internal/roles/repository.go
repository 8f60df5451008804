package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/panelkit/panel/internal/platform/db"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

// List returns one page of roles and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, page shared.Page) ([]rbac.Role, int, error) {
	var (
		where []string
		args  []any
	)
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR value ILIKE $%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("roles: count: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := fmt.Sprintf(`SELECT id, name, value, status, remark, created_at, updated_at
		FROM roles%s ORDER BY id LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	roles := []rbac.Role{}
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Value, &role.Status, &role.Remark, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("roles: scan: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("roles: list: %w", err)
	}
	return roles, total, nil
}

// Get fetches one role with the ids of its menus.
func (r *Repository) Get(ctx context.Context, id int64) (*rbac.Role, error) {
	var role rbac.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, value, status, remark, created_at, updated_at FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Value, &role.Status, &role.Remark, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrRoleNotFound
		}
		return nil, fmt.Errorf("roles: get: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT menu_id FROM role_menus WHERE role_id = $1 ORDER BY menu_id`, id)
	if err != nil {
		return nil, fmt.Errorf("roles: menu ids: %w", err)
	}
	defer rows.Close()
	role.MenuIDs = []int64{}
	for rows.Next() {
		var mid int64
		if err := rows.Scan(&mid); err != nil {
			return nil, fmt.Errorf("roles: scan menu id: %w", err)
		}
		role.MenuIDs = append(role.MenuIDs, mid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: menu ids: %w", err)
	}
	return &role, nil
}

// Create inserts a role and its menu links in one transaction.
func (r *Repository) Create(ctx context.Context, in Input) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO roles (name, value, status, remark) VALUES ($1, $2, $3, $4) RETURNING id`,
			in.Name, in.Value, in.Status, in.Remark,
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertMenus(ctx, tx, id, in.MenuIDs)
	})
	if err != nil {
		return 0, mapWriteError("create", err)
	}
	return id, nil
}

// Update rewrites a role and replaces its menu links.
func (r *Repository) Update(ctx context.Context, id int64, in Input) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE roles SET name = $2, value = $3, status = $4, remark = $5, updated_at = NOW() WHERE id = $1`,
			id, in.Name, in.Value, in.Status, in.Remark)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return shared.ErrRoleNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_menus WHERE role_id = $1`, id); err != nil {
			return err
		}
		return insertMenus(ctx, tx, id, in.MenuIDs)
	})
	if err != nil {
		return mapWriteError("update", err)
	}
	return nil
}

// CountAccounts returns how many accounts hold the role.
func (r *Repository) CountAccounts(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account_roles WHERE role_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("roles: count accounts: %w", err)
	}
	return n, nil
}

// Delete removes a role. Menu links are removed by cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapWriteError("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrRoleNotFound
	}
	return nil
}

func insertMenus(ctx context.Context, tx *sql.Tx, roleID int64, menuIDs []int64) error {
	for _, mid := range menuIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_menus (role_id, menu_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, mid); err != nil {
			return err
		}
	}
	return nil
}

func mapWriteError(op string, err error) error {
	if _, ok := shared.AsCoded(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.ConstraintName == db.RootRoleConstraint:
			return shared.ErrRootRoleImmutable
		case pgErr.Code == uniqueViolation:
			return shared.ErrRoleExists
		case pgErr.Code == foreignKeyViolation && pgErr.TableName == "account_roles":
			return shared.ErrRoleInUse
		case pgErr.Code == foreignKeyViolation:
			return shared.ErrMenuNotFound
		}
	}
	return fmt.Errorf("roles: %s: %w", op, err)
}
