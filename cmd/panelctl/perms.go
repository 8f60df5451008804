package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/panelkit/panel/internal/platform/cache"
	"github.com/panelkit/panel/internal/platform/db"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/session"
	"github.com/panelkit/panel/jobs"
)

func newPermsCmd() *cobra.Command {
	permsCmd := &cobra.Command{
		Use:   "perms",
		Short: "Permission cache maintenance",
	}

	var (
		accountID int64
		async     bool
		timeout   time.Duration
	)
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute cached permissions of online accounts",
		Long: `Recompute cached permissions of every online account, or of one account with --account.

With --async the refresh is queued for the worker instead of running here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if accountID < 0 {
				return fmt.Errorf("invalid account id %d", accountID)
			}
			e, err := loadEnv()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if async {
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: e.RedisAddr, Password: e.RedisPassword, DB: e.RedisDB}, nil)
				defer client.Close()
				return runRefresh(ctx, cmd.OutOrStdout(), jobs.NewAsyncRefresher(client), accountID)
			}

			resolver, closeFn, err := openResolver(ctx, e)
			if err != nil {
				return err
			}
			defer closeFn()
			return runRefresh(ctx, cmd.OutOrStdout(), resolver, accountID)
		},
	}
	refreshCmd.Flags().Int64Var(&accountID, "account", 0, "refresh only this account")
	refreshCmd.Flags().BoolVar(&async, "async", false, "enqueue the refresh for the worker")
	refreshCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")

	permsCmd.AddCommand(refreshCmd)
	return permsCmd
}

func openResolver(ctx context.Context, e env) (*rbac.Resolver, func(), error) {
	pool, err := db.New(ctx, e.PGDSN, db.Options{MaxConns: int32(e.PermissionRefreshConcurrency) + 1})
	if err != nil {
		return nil, nil, err
	}
	client, err := cache.New(ctx, cache.Options{Addr: e.RedisAddr, Password: e.RedisPassword, DB: e.RedisDB})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	conn := db.SQL(pool)
	resolver := rbac.NewResolver(
		rbac.NewRepository(conn),
		session.NewStore(client),
		rbac.WithConcurrency(e.PermissionRefreshConcurrency),
		rbac.WithLogger(slog.Default()),
	)
	return resolver, func() {
		_ = client.Close()
		_ = conn.Close()
		pool.Close()
	}, nil
}

func runRefresh(ctx context.Context, out io.Writer, refresher rbac.Refresher, accountID int64) error {
	if accountID > 0 {
		if err := refresher.RefreshOne(ctx, accountID); err != nil {
			return fmt.Errorf("refresh account %d: %w", accountID, err)
		}
		fmt.Fprintf(out, "refreshed account %d\n", accountID)
		return nil
	}
	if err := refresher.RefreshAll(ctx); err != nil {
		return fmt.Errorf("refresh all: %w", err)
	}
	fmt.Fprintln(out, "refreshed all online accounts")
	return nil
}
