package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/catalog"
	"restorable.io/restorectl/internal/config"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the embedded backup catalog",
		Long: `The catalog is a SQL copy of the backup-metadata and server-inventory
records. It backs the postgres and sqlite gateway drivers.`,
	}
	cmd.AddCommand(newCatalogMigrateCmd())
	cmd.AddCommand(newCatalogSeedCmd())
	cmd.AddCommand(newCatalogSandboxCmd())
	return cmd
}

func (r *runtime) requireCatalogDriver() error {
	switch r.cfg.Gateway.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		return nil
	default:
		return fmt.Errorf("catalog commands require the postgres or sqlite gateway driver, got %q", r.cfg.Gateway.Driver)
	}
}

func newCatalogMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending catalog schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.requireCatalogDriver(); err != nil {
				return err
			}

			store, err := rt.catalogStore(cmd.Context())
			if err != nil {
				return err
			}
			applied, err := store.Migrate(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "Catalog schema is up to date.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(out, "✓ Applied %s\n", v)
			}
			return nil
		},
	}
}

func newCatalogSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load sites, servers and snapshots from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := catalog.LoadFixture(args[0])
			if err != nil {
				return err
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.requireCatalogDriver(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := rt.catalogStore(ctx)
			if err != nil {
				return err
			}
			if _, err := store.Migrate(ctx); err != nil {
				return err
			}
			if err := store.Seed(ctx, fixture); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %d sites, %d servers, %d web applications, %d databases\n",
				len(fixture.Sites), len(fixture.Servers), len(fixture.WebApplications), len(fixture.Databases))
			return nil
		},
	}
}

func newCatalogSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a throwaway postgres catalog in Docker",
		Long: `Sandbox starts a postgres container, migrates the catalog schema and
optionally seeds it from a fixture. It prints the DSN and keeps the container
running until interrupted. Point gateway.database.dsn at it to try plans
without the live services.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixturePath, _ := cmd.Flags().GetString("fixture")
			image, _ := cmd.Flags().GetString("image")

			var fixture *catalog.Fixture
			if fixturePath != "" {
				var err error
				if fixture, err = catalog.LoadFixture(fixturePath); err != nil {
					return err
				}
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Starting postgres sandbox...")
			sandbox, err := catalog.StartSandbox(ctx, catalog.SandboxOptions{Image: image},
				rt.logger.With(slog.String("component", "sandbox")))
			if err != nil {
				return err
			}
			defer sandbox.Close()

			if fixture != nil {
				if err := sandbox.Seed(ctx, fixture); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sandbox ready\nDSN: %s\nPress Ctrl+C to stop.\n", sandbox.DSN)
			<-ctx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "Stopping sandbox...")
			return nil
		},
	}

	cmd.Flags().String("fixture", "", "YAML fixture to seed the sandbox with")
	cmd.Flags().String("image", "", "Postgres image (default postgres:16-alpine)")
	return cmd
}
