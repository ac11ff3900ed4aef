package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Gateway drivers.
const (
	DriverHTTP     = "http"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Verification modes.
const (
	ModeService  = "service"
	ModeEmbedded = "embedded"
)

// Provider backend types.
const (
	ProviderS3      = "s3"
	ProviderSFTP    = "sftp"
	ProviderCommand = "command"
)

// Config matches the structure of the config.yaml file.
type Config struct {
	Version      int          `yaml:"version" mapstructure:"version"`
	Caller       Caller       `yaml:"caller" mapstructure:"caller"`
	Gateway      Gateway      `yaml:"gateway" mapstructure:"gateway"`
	Verification Verification `yaml:"verification" mapstructure:"verification"`
	Rules        Rules        `yaml:"rules" mapstructure:"rules"`
	Logging      Logging      `yaml:"logging" mapstructure:"logging"`
	CLI          CLI          `yaml:"cli" mapstructure:"cli"`
	Signing      Signing      `yaml:"signing" mapstructure:"signing"`
}

type Caller struct {
	ID int64 `yaml:"id" mapstructure:"id"`
}

type Gateway struct {
	Driver   string      `yaml:"driver" mapstructure:"driver"`
	HTTP     HTTPGateway `yaml:"http" mapstructure:"http"`
	Database Database    `yaml:"database" mapstructure:"database"`
}

type HTTPGateway struct {
	BackupURL      string `yaml:"backup_url" mapstructure:"backup_url"`
	ServerURL      string `yaml:"server_url" mapstructure:"server_url"`
	TokenEnv       string `yaml:"token_env" mapstructure:"token_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type Database struct {
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
	DSNEnv string `yaml:"dsn_env,omitempty" mapstructure:"dsn_env"`
}

type Verification struct {
	Mode      string              `yaml:"mode" mapstructure:"mode"`
	Local     LocalVerification   `yaml:"local" mapstructure:"local"`
	Providers map[string]Provider `yaml:"providers,omitempty" mapstructure:"providers"`
}

type LocalVerification struct {
	Root            string `yaml:"root" mapstructure:"root"`
	AgeIdentityPath string `yaml:"age_identity_path,omitempty" mapstructure:"age_identity_path"`
	AgeIdentityEnv  string `yaml:"age_identity_env,omitempty" mapstructure:"age_identity_env"`
}

// Provider configures how the remote digest of one storage provider is fetched.
type Provider struct {
	Type    string   `yaml:"type" mapstructure:"type"`
	S3      *S3      `yaml:"s3,omitempty" mapstructure:"s3"`
	SFTP    *SFTP    `yaml:"sftp,omitempty" mapstructure:"sftp"`
	Command *Command `yaml:"command,omitempty" mapstructure:"command"`
}

type S3 struct {
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Region       string `yaml:"region" mapstructure:"region"`
	AccessKeyEnv string `yaml:"access_key_env" mapstructure:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env" mapstructure:"secret_key_env"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix"`
}

type SFTP struct {
	Host                  string `yaml:"host" mapstructure:"host"`
	Port                  int    `yaml:"port" mapstructure:"port"`
	Username              string `yaml:"username" mapstructure:"username"`
	PasswordEnv           string `yaml:"password_env,omitempty" mapstructure:"password_env"`
	KeyPath               string `yaml:"key_path,omitempty" mapstructure:"key_path"`
	KnownHostsPath        string `yaml:"known_hosts_path,omitempty" mapstructure:"known_hosts_path"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key,omitempty" mapstructure:"insecure_ignore_host_key"`
	Path                  string `yaml:"path" mapstructure:"path"`
}

type Command struct {
	Exec           string `yaml:"exec" mapstructure:"exec"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

type Rules struct {
	FallbackToNew bool             `yaml:"fallback_to_new" mapstructure:"fallback_to_new"`
	BackupTypes   []BackupTypeRule `yaml:"backup_types,omitempty" mapstructure:"backup_types"`
}

// BackupTypeRule disables restore destinations for one backup type.
type BackupTypeRule struct {
	BackupType   string `yaml:"backup_type" mapstructure:"backup_type"`
	DisableOther bool   `yaml:"disable_other" mapstructure:"disable_other"`
	DisableNew   bool   `yaml:"disable_new" mapstructure:"disable_new"`
	OtherReason  string `yaml:"other_reason,omitempty" mapstructure:"other_reason"`
	NewReason    string `yaml:"new_reason,omitempty" mapstructure:"new_reason"`
}

type Logging struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

type CLI struct {
	ReportDir string `yaml:"report_dir" mapstructure:"report_dir"`
}

type Signing struct {
	PrivateKeyPath string `yaml:"private_key_path" mapstructure:"private_key_path"`
}

// BaseDir returns the directory holding the config file, keys and reports.
func BaseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".restorectl"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.yaml"), nil
}

func setDefaults(v *viper.Viper, baseDir string) {
	v.SetDefault("version", 1)
	v.SetDefault("caller.id", 0)
	v.SetDefault("gateway.driver", DriverHTTP)
	v.SetDefault("gateway.http.backup_url", "http://127.0.0.1:8081")
	v.SetDefault("gateway.http.server_url", "http://127.0.0.1:8082")
	v.SetDefault("gateway.http.token_env", "RESTORECTL_GATEWAY_TOKEN")
	v.SetDefault("gateway.http.timeout_seconds", 30)
	v.SetDefault("gateway.database.dsn", "")
	v.SetDefault("gateway.database.dsn_env", "")
	v.SetDefault("verification.mode", ModeService)
	v.SetDefault("verification.local.root", "/var/backups/restorectl")
	v.SetDefault("verification.local.age_identity_path", "")
	v.SetDefault("verification.local.age_identity_env", "")
	v.SetDefault("rules.fallback_to_new", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("cli.report_dir", filepath.Join(baseDir, "reports"))
	v.SetDefault("signing.private_key_path", filepath.Join(baseDir, "keys", "signing.key"))
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"logging.level":  "log-level",
	"logging.format": "log-format",
	"gateway.driver": "gateway",
	"caller.id":      "caller",
}

// Load finds, reads, and parses the configuration file. An empty path means
// the default location. RESTORECTL_* environment variables override file
// values, e.g. RESTORECTL_GATEWAY_DRIVER for gateway.driver, and flags that
// were set on the command line override both.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at %s. Please run 'restorectl init'", path)
	}

	v := viper.New()
	setDefaults(v, filepath.Dir(path))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RESTORECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Gateway.Driver {
	case DriverHTTP:
		if c.Gateway.HTTP.BackupURL == "" || c.Gateway.HTTP.ServerURL == "" {
			return fmt.Errorf("gateway driver 'http' requires backup_url and server_url")
		}
	case DriverPostgres, DriverSQLite:
		if c.Gateway.Database.DSN == "" && c.Gateway.Database.DSNEnv == "" {
			return fmt.Errorf("gateway driver '%s' requires database.dsn or database.dsn_env", c.Gateway.Driver)
		}
	default:
		return fmt.Errorf("unsupported gateway driver: %s", c.Gateway.Driver)
	}

	switch c.Verification.Mode {
	case ModeService:
		if c.Gateway.Driver != DriverHTTP {
			return fmt.Errorf("verification mode 'service' requires the 'http' gateway driver")
		}
	case ModeEmbedded:
	default:
		return fmt.Errorf("unsupported verification mode: %s", c.Verification.Mode)
	}

	for slug, p := range c.Verification.Providers {
		if err := p.validate(); err != nil {
			return fmt.Errorf("provider %s: %w", slug, err)
		}
	}

	for _, r := range c.Rules.BackupTypes {
		if r.BackupType == "" {
			return fmt.Errorf("backup type rule without backup_type")
		}
	}
	return nil
}

func (p Provider) validate() error {
	switch p.Type {
	case ProviderS3:
		if p.S3 == nil || p.S3.Bucket == "" {
			return fmt.Errorf("type 's3' requires s3.bucket")
		}
	case ProviderSFTP:
		if p.SFTP == nil || p.SFTP.Host == "" {
			return fmt.Errorf("type 'sftp' requires sftp.host")
		}
	case ProviderCommand:
		if p.Command == nil || p.Command.Exec == "" {
			return fmt.Errorf("type 'command' requires command.exec")
		}
	default:
		return fmt.Errorf("unsupported provider type: %s", p.Type)
	}
	return nil
}

// DatabaseDSN resolves the catalog DSN, preferring the environment variable.
func (g Gateway) DatabaseDSN() (string, error) {
	if g.Database.DSNEnv != "" {
		if dsn := os.Getenv(g.Database.DSNEnv); dsn != "" {
			return dsn, nil
		}
		if g.Database.DSN == "" {
			return "", fmt.Errorf("database DSN environment variable %s is not set", g.Database.DSNEnv)
		}
	}
	return g.Database.DSN, nil
}

// Save writes cfg as YAML to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
