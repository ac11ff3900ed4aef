package storage

import (
	"fmt"
	"log/slog"
	"time"

	"restorable.io/restorectl/internal/config"
	"restorable.io/restorectl/internal/crypto"
)

// NewLocalVerifierFromConfig builds the server-side verifier for local snapshots.
func NewLocalVerifierFromConfig(cfg *config.LocalVerification, logger *slog.Logger) (*LocalVerifier, error) {
	v := &LocalVerifier{Root: cfg.Root, Logger: logger}

	var err error
	switch {
	case cfg.AgeIdentityPath != "":
		v.Decryptor, err = crypto.NewAgeDecryptor(cfg.AgeIdentityPath)
	case cfg.AgeIdentityEnv != "":
		v.Decryptor, err = crypto.NewAgeDecryptorFromEnv(cfg.AgeIdentityEnv)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set up snapshot decryption: %w", err)
	}
	return v, nil
}

// NewDigesterFromConfig creates the Digester for one provider.
func NewDigesterFromConfig(p config.Provider) (Digester, error) {
	switch p.Type {
	case config.ProviderS3:
		if p.S3 == nil {
			return nil, fmt.Errorf("provider type is 's3' but s3 configuration is missing")
		}
		return NewS3Digester(p.S3)

	case config.ProviderSFTP:
		if p.SFTP == nil {
			return nil, fmt.Errorf("provider type is 'sftp' but sftp configuration is missing")
		}
		return NewSFTPDigester(p.SFTP)

	case config.ProviderCommand:
		if p.Command == nil || p.Command.Exec == "" {
			return nil, fmt.Errorf("provider type is 'command' but exec is not configured")
		}
		return &CommandDigester{
			Exec:    p.Command.Exec,
			Timeout: time.Duration(p.Command.TimeoutSeconds) * time.Second,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", p.Type)
	}
}

// NewRemoteVerifierFromConfig builds the backup-side verifier with one
// digester per configured storage slug.
func NewRemoteVerifierFromConfig(providers map[string]config.Provider, logger *slog.Logger) (*RemoteVerifier, error) {
	digesters := make(map[string]Digester, len(providers))
	for slug, p := range providers {
		d, err := NewDigesterFromConfig(p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", slug, err)
		}
		digesters[slug] = d
	}
	return NewRemoteVerifier(digesters, logger), nil
}
