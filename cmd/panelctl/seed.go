package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/rbac"
)

// seedAdmin creates username (or resets its password) and grants it the root role.
func seedAdmin(ctx context.Context, conn *pgx.Conn, username, passwordHash string) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO accounts (username, password_hash, nickname, status)
			VALUES ($1, $2, $1, $3)
			ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, status = EXCLUDED.status, updated_at = NOW()
			RETURNING id`, username, passwordHash, auth.StatusEnabled).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO account_roles (account_id, role_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, id, rbac.RootRoleID)
		if err != nil {
			return fmt.Errorf("grant root role: %w", err)
		}
		return nil
	})
	return id, err
}

func newSeedAdminCmd(resolveDSN func() (string, error)) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset an administrator account",
		Long: `Create an account holding the root role, or reset the password of an existing one.

Run "db migrate up" first. The password is hashed before it reaches the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username = auth.NormalizeUsername(username)
			if username == "" {
				return errors.New("--username is required")
			}
			if len(password) < 6 {
				return errors.New("--password must be at least 6 characters")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			conn, err := pgx.Connect(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer conn.Close(context.Background())

			id, err := seedAdmin(cmd.Context(), conn, username, hash)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "administrator %q ready (id %d)\n", username, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}
