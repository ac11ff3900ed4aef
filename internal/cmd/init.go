package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/config"
	"restorable.io/restorectl/internal/signing"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Bootstrap config and signing keys",
		Long: `Initializes restorectl for this machine.

This command creates a '.restorectl' directory in your home directory (or next
to --config) containing a 'config.yaml' and a new Ed25519 keypair for signing
reports. It prompts for the caller, the gateway and the verification mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Bootstrapping restorectl...")

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				var err error
				if configPath, err = config.DefaultPath(); err != nil {
					return fmt.Errorf("could not determine config path: %w", err)
				}
			}
			baseDir := filepath.Dir(configPath)

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("a config file already exists at %s", configPath)
			}

			p := &prompter{reader: bufio.NewReader(cmd.InOrStdin()), out: out}

			callerID, err := p.promptIntWithDefault("Caller user id", 0)
			if err != nil {
				return err
			}

			cfg := config.Config{
				Version: 1,
				Caller:  config.Caller{ID: int64(callerID)},
				Rules:   config.Rules{FallbackToNew: true},
				Logging: config.Logging{
					Level:      "info",
					Format:     "text",
					MaxSizeMB:  10,
					MaxBackups: 3,
					MaxAgeDays: 28,
				},
				CLI:     config.CLI{ReportDir: filepath.Join(baseDir, "reports")},
				Signing: config.Signing{PrivateKeyPath: filepath.Join(baseDir, "keys", "signing.key")},
			}

			driver, err := p.promptWithDefault("Gateway driver (http/postgres/sqlite)", config.DriverHTTP)
			if err != nil {
				return err
			}
			cfg.Gateway.Driver = driver

			switch driver {
			case config.DriverHTTP:
				backupURL, err := p.promptWithDefault("Backup service URL", "http://127.0.0.1:8081")
				if err != nil {
					return err
				}
				serverURL, err := p.promptWithDefault("Server service URL", "http://127.0.0.1:8082")
				if err != nil {
					return err
				}
				cfg.Gateway.HTTP = config.HTTPGateway{
					BackupURL:      backupURL,
					ServerURL:      serverURL,
					TokenEnv:       "RESTORECTL_GATEWAY_TOKEN",
					TimeoutSeconds: 30,
				}
			case config.DriverSQLite:
				dsn, err := p.promptWithDefault("Catalog database file", filepath.Join(baseDir, "catalog.db"))
				if err != nil {
					return err
				}
				cfg.Gateway.Database = config.Database{DSN: dsn}
			case config.DriverPostgres:
				cfg.Gateway.Database = config.Database{DSNEnv: "RESTORECTL_CATALOG_DSN"}
			default:
				return fmt.Errorf("unsupported gateway driver: %s", driver)
			}

			defaultMode := config.ModeService
			if driver != config.DriverHTTP {
				defaultMode = config.ModeEmbedded
			}
			mode, err := p.promptWithDefault("Verification mode (service/embedded)", defaultMode)
			if err != nil {
				return err
			}
			cfg.Verification.Mode = mode
			if mode == config.ModeEmbedded {
				root, err := p.promptWithDefault("Local backup root", "/var/backups/restorectl")
				if err != nil {
					return err
				}
				cfg.Verification.Local = config.LocalVerification{Root: root}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := config.Save(&cfg, configPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote config to %s\n", configPath)

			pubKeyPath, err := signing.WriteKeyPair(cfg.Signing.PrivateKeyPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote signing keys to %s and %s\n", cfg.Signing.PrivateKeyPath, pubKeyPath)
			fmt.Fprintln(out, "\nInitialized. Please review config.yaml and provide secrets via environment variables.")

			return nil
		},
	}
}

type prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// promptWithDefault asks the user for input, providing a default if input is empty.
func (p *prompter) promptWithDefault(label, defaultValue string) (string, error) {
	fmt.Fprintf(p.out, "%s (%s): ", label, defaultValue)
	input, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue, nil
	}
	return input, nil
}

// promptIntWithDefault is a convenience wrapper for integer prompts.
func (p *prompter) promptIntWithDefault(label string, defaultValue int) (int, error) {
	valStr, err := p.promptWithDefault(label, strconv.Itoa(defaultValue))
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number provided: %q", valStr)
	}
	return val, nil
}
