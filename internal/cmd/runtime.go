package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/catalog"
	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/config"
	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/gateway/httpgw"
	"restorable.io/restorectl/internal/logging"
	"restorable.io/restorectl/internal/restore"
	"restorable.io/restorectl/internal/storage"
)

// runtime holds the components a command needs, built from configuration.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer

	http    *httpgw.Client
	catalog *catalog.Store
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, closer := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Stderr:     cmd.ErrOrStderr(),
	})

	return &runtime{cfg: cfg, logger: logger, closers: []io.Closer{closer}}, nil
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
}

func (r *runtime) httpClient() (*httpgw.Client, error) {
	if r.http != nil {
		return r.http, nil
	}
	h := r.cfg.Gateway.HTTP
	token := ""
	if h.TokenEnv != "" {
		token = os.Getenv(h.TokenEnv)
	}
	client, err := httpgw.New(httpgw.Options{
		BackupURL: h.BackupURL,
		ServerURL: h.ServerURL,
		Token:     token,
		Timeout:   time.Duration(h.TimeoutSeconds) * time.Second,
		Logger:    r.logger.With(slog.String("component", "httpgw")),
	})
	if err != nil {
		return nil, err
	}
	r.http = client
	return client, nil
}

func (r *runtime) catalogStore(ctx context.Context) (*catalog.Store, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	dsn, err := r.cfg.Gateway.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(ctx, r.cfg.Gateway.Driver, dsn, r.logger.With(slog.String("component", "catalog")))
	if err != nil {
		return nil, err
	}
	r.catalog = store
	r.closers = append(r.closers, store)
	return store, nil
}

// gateway returns the service gateway selected by gateway.driver.
func (r *runtime) gateway(ctx context.Context) (gateway.Gateway, error) {
	switch r.cfg.Gateway.Driver {
	case config.DriverHTTP:
		return r.httpClient()
	case config.DriverPostgres, config.DriverSQLite:
		return r.catalogStore(ctx)
	default:
		return nil, fmt.Errorf("unsupported gateway driver: %s", r.cfg.Gateway.Driver)
	}
}

func (r *runtime) rules() []restore.Rule {
	var rules []restore.Rule
	for _, bt := range r.cfg.Rules.BackupTypes {
		rules = append(rules, restore.RestrictBackupType(restore.BackupTypeRestriction{
			BackupType:   bt.BackupType,
			DisableOther: bt.DisableOther,
			DisableNew:   bt.DisableNew,
			OtherReason:  bt.OtherReason,
			NewReason:    bt.NewReason,
		}))
	}
	if r.cfg.Rules.FallbackToNew {
		rules = append(rules, restore.FallbackToNewRule)
	}
	return rules
}

func (r *runtime) planner(ctx context.Context) (*restore.Planner, error) {
	gw, err := r.gateway(ctx)
	if err != nil {
		return nil, err
	}
	builder := restore.NewInputBuilder(gw, r.logger)
	resolver := restore.NewResolver(gw, restore.WithRules(r.rules()...), restore.WithLogger(r.logger))
	return restore.NewPlanner(builder, resolver), nil
}

// dispatcher wires the checksum backends for verification.mode.
func (r *runtime) dispatcher() (*checksum.Dispatcher, error) {
	logger := r.logger.With(slog.String("component", "checksum"))

	switch r.cfg.Verification.Mode {
	case config.ModeService:
		client, err := r.httpClient()
		if err != nil {
			return nil, err
		}
		return checksum.NewDispatcher(
			client.ChecksumBackend(httpgw.ServiceServer),
			client.ChecksumBackend(httpgw.ServiceBackup),
			logger,
		), nil

	case config.ModeEmbedded:
		local, err := storage.NewLocalVerifierFromConfig(&r.cfg.Verification.Local, logger)
		if err != nil {
			return nil, err
		}
		remote, err := storage.NewRemoteVerifierFromConfig(r.cfg.Verification.Providers, logger)
		if err != nil {
			return nil, err
		}
		return checksum.NewDispatcher(local, remote, logger), nil

	default:
		return nil, fmt.Errorf("unsupported verification mode: %s", r.cfg.Verification.Mode)
	}
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, raw)
	}
	return id, nil
}

func machineID() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
