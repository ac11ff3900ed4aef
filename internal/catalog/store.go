// Package catalog implements the service gateway over a backup-metadata SQL
// database, for deployments that read the catalogue directly.
package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/logging"
)

// Supported database types.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

//go:embed migrations
var embeddedMigrations embed.FS

// Store reads the catalogue through bun.
type Store struct {
	db     *bun.DB
	dbType string
	logger *slog.Logger
}

var _ gateway.Gateway = (*Store)(nil)

// Open connects to the catalogue database and checks the connection.
func Open(ctx context.Context, dbType, dsn string, logger *slog.Logger) (*Store, error) {
	if dbType != Postgres && dbType != SQLite {
		return nil, fmt.Errorf("unsupported catalog database type: '%s'", dbType)
	}

	sqlDB, err := sql.Open(dbType, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// Every connection to ":memory:" gets its own database, so keep one.
	if dbType == SQLite && (dsn == ":memory:" || strings.Contains(dsn, "mode=memory")) {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: catalog database: %v", gateway.ErrUpstreamUnavailable, err)
	}

	var db *bun.DB
	switch dbType {
	case Postgres:
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	}

	return &Store{db: db, dbType: dbType, logger: logging.OrDiscard(logger)}, nil
}

// DB exposes the bun handle for seeding and maintenance.
func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded .up.sql files not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	dir := path.Join("migrations", s.dbType)
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations (%s): %w", dir, err)
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`); err != nil {
		return nil, fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	var applied []string
	for _, name := range ups {
		version := strings.TrimSuffix(name, ".up.sql")

		exists, err := s.db.NewSelect().Table("schema_migrations").Where("version = ?", version).Exists(ctx)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration version %s: %w", version, err)
		}
		if exists {
			continue
		}

		data, err := embeddedMigrations.ReadFile(path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, string(data)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}

		s.logger.Info("catalog migration applied", slog.String("version", version), slog.String("db", s.dbType))
		applied = append(applied, version)
	}
	return applied, nil
}

// mapError translates driver errors into gateway sentinels.
func mapError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, what)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %s: %v", gateway.ErrUpstreamUnavailable, what, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", gateway.ErrUpstreamUnavailable, what, err)
	}
	return fmt.Errorf("failed to query %s: %w", what, err)
}
