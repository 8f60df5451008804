package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/panelkit/panel/internal/platform/db"
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

// List returns one page of users and the total match count.
func (r *Repository) List(ctx context.Context, filter ListFilter, page shared.Page) ([]User, int, error) {
	var (
		where []string
		args  []any
	)
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		where = append(where, fmt.Sprintf("(username ILIKE $%d OR nickname ILIKE $%d)", len(args), len(args)))
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	args = append(args, page.PageSize, page.Offset())
	query := fmt.Sprintf(`SELECT id, username, nickname, email, status, created_at, updated_at
		FROM accounts%s ORDER BY id LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Nickname, &u.Email, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("users: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return users, total, nil
}

// Get fetches one user with its role ids.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, nickname, email, status, created_at, updated_at FROM accounts WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Nickname, &u.Email, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, fmt.Errorf("users: get: %w", err)
	}
	roleIDs, err := r.RoleIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	u.RoleIDs = roleIDs
	return &u, nil
}

// RoleIDs lists the roles assigned to an account.
func (r *Repository) RoleIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role_id FROM account_roles WHERE account_id = $1 ORDER BY role_id`, id)
	if err != nil {
		return nil, fmt.Errorf("users: role ids: %w", err)
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var rid int64
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("users: scan role id: %w", err)
		}
		ids = append(ids, rid)
	}
	return ids, rows.Err()
}

// Create inserts an account and its role links in one transaction.
func (r *Repository) Create(ctx context.Context, in NewUser) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO accounts (username, password_hash, nickname, email, status)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			in.Username, in.PasswordHash, in.Nickname, in.Email, in.Status,
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertRoles(ctx, tx, id, in.RoleIDs)
	})
	if err != nil {
		return 0, mapWriteError("create", err)
	}
	return id, nil
}

// ReplaceRoles swaps the role links of an account.
func (r *Repository) ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM account_roles WHERE account_id = $1`, id); err != nil {
			return err
		}
		return insertRoles(ctx, tx, id, roleIDs)
	})
	if err != nil {
		return mapWriteError("replace roles", err)
	}
	return nil
}

// UpdateStatus sets the status of the given accounts.
func (r *Repository) UpdateStatus(ctx context.Context, ids []int64, status int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{status}, db.Int64Args(ids)...)
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = $1, updated_at = NOW() WHERE id IN (`+db.Placeholders(2, len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("users: update status: %w", err)
	}
	return res.RowsAffected()
}

// UpdatePassword replaces the password hash of an account.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("users: update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

// HoldersOfRole returns which of ids hold roleID.
func (r *Repository) HoldersOfRole(ctx context.Context, roleID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := append([]any{roleID}, db.Int64Args(ids)...)
	rows, err := r.db.QueryContext(ctx,
		`SELECT account_id FROM account_roles WHERE role_id = $1 AND account_id IN (`+db.Placeholders(2, len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("users: role holders: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("users: scan holder: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Delete removes accounts. Role links go with them.
func (r *Repository) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id IN (`+db.Placeholders(1, len(ids))+`)`, db.Int64Args(ids)...)
	if err != nil {
		return 0, fmt.Errorf("users: delete: %w", err)
	}
	return res.RowsAffected()
}

func insertRoles(ctx context.Context, tx *sql.Tx, accountID int64, roleIDs []int64) error {
	for _, rid := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, accountID, rid); err != nil {
			return err
		}
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return shared.ErrAccountExists
		case foreignKeyViolation:
			return shared.ErrRoleNotFound
		}
	}
	return fmt.Errorf("users: %s: %w", op, err)
}
