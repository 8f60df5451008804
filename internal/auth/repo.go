package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/panelkit/panel/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	Create(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *sql.DB
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const accountColumns = `id, username, password_hash, nickname, email, status, created_at, updated_at`

// FindByUsername fetches an account by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// Create inserts account and fills in its generated fields.
func (r *PGRepository) Create(ctx context.Context, account *Account) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (username, password_hash, nickname, email, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		account.Username, account.PasswordHash, account.Nickname, account.Email, account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrAccountExists
		}
		return fmt.Errorf("auth: create account: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash of an account.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("auth: update password: %w", err)
	}
	if n == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.Email, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, fmt.Errorf("auth: scan account: %w", err)
	}
	return &a, nil
}

var _ Repository = (*PGRepository)(nil)
