package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/noah-isme/recurring-todo-api/pkg/config"
	"github.com/noah-isme/recurring-todo-api/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  "Applies or reports the embedded goose migrations against the database configured by DB_* variables.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return runMigrateUp(ctx, cmd.OutOrStdout(), db)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, db *sqlx.DB) error {
				return runMigrateStatus(ctx, cmd.OutOrStdout(), db)
			})
		},
	})
	return cmd
}

func withDatabase(ctx context.Context, fn func(context.Context, *sqlx.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("migrate: load config: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer db.Close()
	return fn(ctx, db)
}

func runMigrateUp(ctx context.Context, out io.Writer, db *sqlx.DB) error {
	applied, err := database.Migrate(ctx, db.DB)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "schema is up to date")
		return nil
	}
	for _, version := range applied {
		fmt.Fprintf(out, "applied %05d\n", version)
	}
	return nil
}

func runMigrateStatus(ctx context.Context, out io.Writer, db *sqlx.DB) error {
	states, err := database.Status(ctx, db.DB)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tSOURCE")
	for _, st := range states {
		state := "pending"
		if st.Applied {
			state = "applied"
		}
		fmt.Fprintf(w, "%05d\t%s\t%s\n", st.Version, state, st.Source)
	}
	return w.Flush()
}
