package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/crypto"
	"restorable.io/restorectl/internal/logging"
)

// LocalVerifier checks snapshots stored on the local filesystem of the server
// holding the backup.
type LocalVerifier struct {
	Root string
	// Decryptor is used for encrypted snapshots. Without it their digest is
	// computed over the ciphertext.
	Decryptor *crypto.AgeDecryptor
	Logger    *slog.Logger
}

var _ checksum.Backend = (*LocalVerifier)(nil)

// VerifyChecksum recomputes the snapshot digest and compares it with the recorded one.
func (v *LocalVerifier) VerifyChecksum(ctx context.Context, req checksum.Request) (checksum.Response, error) {
	logger := logging.OrDiscard(v.Logger)
	snap := req.Snapshot

	algorithm, want, err := ParseChecksum(snap.Checksum)
	if err != nil {
		return checksum.Response{Success: false, Message: err.Error()}, nil
	}

	path, err := v.resolve(snap.Path)
	if err != nil {
		return checksum.Response{}, err
	}

	rc, err := v.open(path, snap.Encrypted)
	if errors.Is(err, ErrArtifactNotFound) {
		logger.Warn("snapshot artifact missing", slog.String("snapshot_id", snap.ID), slog.String("path", path))
		return checksum.Response{Success: false, Message: err.Error()}, nil
	}
	if err != nil {
		return checksum.Response{}, err
	}
	defer rc.Close()

	got, err := HashReader(ctx, algorithm, rc)
	if err != nil {
		return checksum.Response{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	logger.Debug("local digest computed",
		slog.String("snapshot_id", snap.ID),
		slog.String("algorithm", algorithm),
		slog.String("digest", got))

	if got != want {
		return checksum.Response{Success: false, Message: mismatchMessage(algorithm, want, got)}, nil
	}
	return checksum.Response{Success: true}, nil
}

// resolve joins a snapshot path under Root, refusing paths that escape it.
func (v *LocalVerifier) resolve(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("snapshot has no path")
	}
	if v.Root == "" {
		return filepath.Clean(p), nil
	}

	root := filepath.Clean(v.Root)
	full := filepath.Join(root, strings.TrimPrefix(filepath.Clean("/"+p), "/"))
	if filepath.IsAbs(p) && strings.HasPrefix(filepath.Clean(p), root+string(filepath.Separator)) {
		full = filepath.Clean(p)
	}
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("snapshot path %s escapes root %s", p, root)
	}
	return full, nil
}

func (v *LocalVerifier) open(path string, encrypted bool) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrArtifactNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot at %s: %w", path, err)
	}

	if !encrypted || v.Decryptor == nil {
		return file, nil
	}

	rc, err := v.Decryptor.NewDecryptReadCloser(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to decrypt snapshot at %s: %w", path, err)
	}
	return rc, nil
}
