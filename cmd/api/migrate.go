package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/carless/internal/config"
	"github.com/pkordes/carless/migrations"
)

func newMigrateCmd(load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(cmd.Context(), load, func(ctx context.Context, p *goose.Provider) error {
				results, err := p.Up(ctx)
				if err != nil {
					return err
				}
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s (%s)\n", r.Source.Path, r.Duration)
				}
				return nil
			})
		},
	}

	var to int64
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration, or down to --to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(cmd.Context(), load, func(ctx context.Context, p *goose.Provider) error {
				if cmd.Flags().Changed("to") {
					results, err := p.DownTo(ctx, to)
					if err != nil {
						return err
					}
					for _, r := range results {
						fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", r.Source.Path)
					}
					return nil
				}
				r, err := p.Down(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", r.Source.Path)
				return nil
			})
		},
	}
	down.Flags().Int64Var(&to, "to", 0, "target version to roll back to")

	cmd.AddCommand(up, down)
	return cmd
}

// withProvider opens the configured database and runs fn with a goose
// provider over the embedded migrations.
func withProvider(ctx context.Context, load func() (config.Config, error), fn func(context.Context, *goose.Provider) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	newLogger(cfg.LogLevel)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	if err := migrate(ctx, pool, fn); err != nil {
		return err
	}
	return nil
}

// migrate adapts pool to database/sql for goose and runs fn.
func migrate(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, *goose.Provider) error) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if err := fn(ctx, provider); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// migrateUp is the start-up initialisation used by serve.
func migrateUp(ctx context.Context, p *goose.Provider) error {
	_, err := p.Up(ctx)
	return err
}
