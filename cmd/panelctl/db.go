package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/panelkit/panel/internal/platform/db"
)

func newDBCmd() *cobra.Command {
	var dsn string
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	dbCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres connection string (default $PG_DSN)")

	resolve := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		e, err := loadEnv()
		if err != nil {
			return "", err
		}
		return e.PGDSN, nil
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			applied, err := db.MigrateUp(target)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Fprintln(cmd.OutOrStdout(), "schema already up to date")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}
			target, err := resolve()
			if err != nil {
				return err
			}
			if err := db.MigrateDown(target, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			status, err := db.Status(target)
			if err != nil {
				return err
			}
			if !status.Applied {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", status.Version, status.Dirty)
			return nil
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, statusCmd)
	dbCmd.AddCommand(migrateCmd, newSeedAdminCmd(resolve))
	return dbCmd
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return steps, nil
}
