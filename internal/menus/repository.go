package menus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/panelkit/panel/internal/platform/db"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

const foreignKeyViolation = "23503"

const menuColumns = `id, parent_id, name, path, permission, type, icon, order_no, component, status, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMenu(row scanner) (rbac.Menu, error) {
	var (
		m          rbac.Menu
		parentID   sql.NullInt64
		permission sql.NullString
	)
	if err := row.Scan(&m.ID, &parentID, &m.Name, &m.Path, &permission, &m.Type, &m.Icon, &m.OrderNo,
		&m.Component, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return rbac.Menu{}, err
	}
	if parentID.Valid {
		m.ParentID = &parentID.Int64
	}
	if permission.Valid {
		m.Permission = &permission.String
	}
	return m, nil
}

func (r *Repository) query(ctx context.Context, op, query string, args ...any) ([]rbac.Menu, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("menus: %s: %w", op, err)
	}
	defer rows.Close()
	out := []rbac.Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("menus: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("menus: %s: %w", op, err)
	}
	return out, nil
}

// List returns every node ordered for display.
func (r *Repository) List(ctx context.Context) ([]rbac.Menu, error) {
	return r.query(ctx, "list", `SELECT `+menuColumns+` FROM menus ORDER BY order_no, id`)
}

// ListNavigable returns enabled groups and menus, optionally restricted to the given roles.
// A nil roleIDs means no restriction.
func (r *Repository) ListNavigable(ctx context.Context, roleIDs []int64) ([]rbac.Menu, error) {
	if roleIDs == nil {
		return r.query(ctx, "navigable",
			`SELECT `+menuColumns+` FROM menus WHERE type IN (0, 1) AND status = 1 ORDER BY order_no, id`)
	}
	if len(roleIDs) == 0 {
		return []rbac.Menu{}, nil
	}
	return r.query(ctx, "navigable",
		`SELECT `+menuColumns+` FROM menus WHERE type IN (0, 1) AND status = 1
		 AND id IN (SELECT menu_id FROM role_menus WHERE role_id IN (`+db.Placeholders(1, len(roleIDs))+`))
		 ORDER BY order_no, id`, db.Int64Args(roleIDs)...)
}

// Get fetches one node.
func (r *Repository) Get(ctx context.Context, id int64) (*rbac.Menu, error) {
	m, err := scanMenu(r.db.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrMenuNotFound
		}
		return nil, fmt.Errorf("menus: get: %w", err)
	}
	return &m, nil
}

// FindChildMenus returns every descendant of id, nearest first.
func (r *Repository) FindChildMenus(ctx context.Context, id int64) ([]rbac.Menu, error) {
	return r.query(ctx, "children", `WITH RECURSIVE tree AS (
			SELECT id, 1 AS depth FROM menus WHERE parent_id = $1
			UNION ALL
			SELECT c.id, t.depth + 1 FROM menus c JOIN tree t ON c.parent_id = t.id
		)
		SELECT m.id, m.parent_id, m.name, m.path, m.permission, m.type, m.icon, m.order_no, m.component,
		       m.status, m.created_at, m.updated_at
		FROM menus m JOIN tree t ON t.id = m.id
		ORDER BY t.depth, m.id`, id)
}

// Create inserts a node.
func (r *Repository) Create(ctx context.Context, m rbac.Menu) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO menus (parent_id, name, path, permission, type, icon, order_no, component, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		m.ParentID, m.Name, m.Path, m.Permission, m.Type, m.Icon, m.OrderNo, m.Component, m.Status,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create", err)
	}
	return id, nil
}

// Update rewrites a node.
func (r *Repository) Update(ctx context.Context, m rbac.Menu) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menus SET parent_id = $2, name = $3, path = $4, permission = $5, type = $6, icon = $7,
		 order_no = $8, component = $9, status = $10, updated_at = NOW() WHERE id = $1`,
		m.ID, m.ParentID, m.Name, m.Path, m.Permission, m.Type, m.Icon, m.OrderNo, m.Component, m.Status)
	if err != nil {
		return mapWriteError("update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrMenuNotFound
	}
	return nil
}

// Delete removes nodes and their role links.
func (r *Repository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		args := db.Int64Args(ids)
		in := db.Placeholders(1, len(ids))
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_menus WHERE menu_id IN (`+in+`)`, args...); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM menus WHERE id IN (`+in+`)`, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("menus: delete: %w", err)
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return shared.ErrParentMenuNotFound
	}
	return fmt.Errorf("menus: %s: %w", op, err)
}
