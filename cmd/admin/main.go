package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/app"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/service"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Role-based admin panel backend",
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenStore(app.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ApplyMigrations(); err != nil {
				return err
			}
			return printVersion(cmd, db.MigrationVersion)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenStore(app.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(steps); err != nil {
				return err
			}
			return printVersion(cmd, db.MigrationVersion)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back (0 rolls back everything)")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.OpenStore(app.LoadConfig())
			if err != nil {
				return err
			}
			defer db.Close()
			return printVersion(cmd, db.MigrationVersion)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, version func() (uint, bool, error)) error {
	v, dirty, err := version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the initial permissions, roles, organisation and accounts into an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg := app.LoadConfig()

			db, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.ApplyMigrations(); err != nil {
				return err
			}

			seeder := &service.SeedService{Store: db, Password: cfg.SeedAdminPassword}
			if file != "" {
				if seeder.Data, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("failed to read seed file: %w", err)
				}
			}

			err = seeder.Seed(ctx)
			if errors.Is(err, service.ErrAlreadySeeded) {
				fmt.Fprintln(cmd.OutOrStdout(), "database already seeded, nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML seed document replacing the built-in one")
	return cmd
}
