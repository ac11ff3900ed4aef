package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SandboxOptions configures an ephemeral postgres catalogue.
type SandboxOptions struct {
	Image    string
	Database string
	User     string
	Password string
}

func (o *SandboxOptions) withDefaults() {
	if o.Image == "" {
		o.Image = "postgres:16-alpine"
	}
	if o.Database == "" {
		o.Database = "catalog"
	}
	if o.User == "" {
		o.User = "restorectl"
	}
	if o.Password == "" {
		o.Password = "restorectl"
	}
}

// Sandbox is a migrated catalogue running in a throwaway postgres container.
type Sandbox struct {
	*Store
	DSN       string
	container *postgres.PostgresContainer
}

// StartSandbox starts a postgres container and migrates the catalogue schema into it.
func StartSandbox(ctx context.Context, opts SandboxOptions, logger *slog.Logger) (*Sandbox, error) {
	opts.withDefaults()

	waitStrategy := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(5 * time.Minute)

	container, err := postgres.Run(ctx,
		opts.Image,
		postgres.WithDatabase(opts.Database),
		postgres.WithUsername(opts.User),
		postgres.WithPassword(opts.Password),
		testcontainers.WithWaitStrategy(waitStrategy),
	)
	if err != nil {
		return nil, fmt.Errorf("could not start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get container connection string: %w", err)
	}

	store, err := Open(ctx, Postgres, dsn, logger)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, err
	}

	if _, err := store.Migrate(ctx); err != nil {
		store.Close()
		_ = container.Terminate(context.Background())
		return nil, err
	}

	return &Sandbox{Store: store, DSN: dsn, container: container}, nil
}

// Close closes the connection and removes the container.
func (s *Sandbox) Close() error {
	s.Store.Close()
	// Terminate with a fresh context so cleanup runs after cancellation.
	if err := s.container.Terminate(context.Background()); err != nil {
		return fmt.Errorf("failed to terminate postgres container: %w", err)
	}
	return nil
}
