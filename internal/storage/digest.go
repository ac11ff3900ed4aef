// Package storage verifies snapshot artifacts in-process: local files on the
// server holding them and remote objects at the storage provider.
package storage

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Digest algorithms.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmMD5    = "md5"
)

// ErrArtifactNotFound means the snapshot artifact does not exist at its storage.
var ErrArtifactNotFound = errors.New("snapshot artifact not found")

// ParseChecksum splits a recorded checksum into algorithm and lowercase hex
// digest. Unprefixed values are SHA-256.
func ParseChecksum(raw string) (algorithm, digest string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("snapshot has no recorded checksum")
	}

	algorithm = AlgorithmSHA256
	if prefix, rest, ok := strings.Cut(raw, ":"); ok {
		algorithm = strings.ToLower(prefix)
		raw = rest
	}

	digest = strings.ToLower(raw)
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", fmt.Errorf("checksum %q is not hex encoded", raw)
	}

	switch algorithm {
	case AlgorithmSHA256:
		if len(digest) != sha256.Size*2 {
			return "", "", fmt.Errorf("sha256 checksum must be %d hex characters", sha256.Size*2)
		}
	case AlgorithmMD5:
		if len(digest) != md5.Size*2 {
			return "", "", fmt.Errorf("md5 checksum must be %d hex characters", md5.Size*2)
		}
	default:
		return "", "", fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}
	return algorithm, digest, nil
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm: %s", algorithm)
	}
}

// HashReader streams r through the algorithm and returns the hex digest.
func HashReader(ctx context.Context, algorithm string, r io.Reader) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read artifact: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func mismatchMessage(algorithm, want, got string) string {
	return fmt.Sprintf("%s mismatch: recorded %s, computed %s", algorithm, want, got)
}
