package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/logging"
	"restorable.io/restorectl/internal/model"
)

// Digester fetches the digest of a snapshot artifact held by a storage provider.
type Digester interface {
	// Digest returns the lowercase hex digest of the artifact for algorithm.
	// It returns ErrArtifactNotFound when the provider does not hold it.
	Digest(ctx context.Context, snap model.Snapshot, algorithm string) (string, error)
	// Identifier describes the provider location for logs and reports.
	Identifier() string
}

// RemoteVerifier checks snapshots at their storage provider, choosing the
// digester by storage slug.
type RemoteVerifier struct {
	digesters map[string]Digester
	logger    *slog.Logger
}

var _ checksum.Backend = (*RemoteVerifier)(nil)

// NewRemoteVerifier creates a verifier over digesters keyed by storage slug.
func NewRemoteVerifier(digesters map[string]Digester, logger *slog.Logger) *RemoteVerifier {
	return &RemoteVerifier{digesters: digesters, logger: logging.OrDiscard(logger)}
}

// VerifyChecksum compares the provider digest with the recorded checksum.
func (v *RemoteVerifier) VerifyChecksum(ctx context.Context, req checksum.Request) (checksum.Response, error) {
	d, ok := v.digesters[req.Storage]
	if !ok {
		return checksum.Response{}, fmt.Errorf("no digest provider configured for storage %q", req.Storage)
	}

	algorithm, want, err := ParseChecksum(req.Snapshot.Checksum)
	if err != nil {
		return checksum.Response{Success: false, Message: err.Error()}, nil
	}

	got, err := d.Digest(ctx, req.Snapshot, algorithm)
	if errors.Is(err, ErrArtifactNotFound) {
		v.logger.Warn("snapshot artifact missing at provider",
			slog.String("snapshot_id", req.Snapshot.ID),
			slog.String("provider", d.Identifier()))
		return checksum.Response{Success: false, Message: err.Error()}, nil
	}
	if err != nil {
		return checksum.Response{}, fmt.Errorf("failed to fetch digest from %s: %w", d.Identifier(), err)
	}

	v.logger.Debug("remote digest fetched",
		slog.String("snapshot_id", req.Snapshot.ID),
		slog.String("provider", d.Identifier()),
		slog.String("digest", got))

	if got != want {
		return checksum.Response{Success: false, Message: mismatchMessage(algorithm, want, got)}, nil
	}
	return checksum.Response{Success: true}, nil
}
