// Package signing manages the Ed25519 keys that sign restore reports. Keys are
// stored raw: 64 bytes for the private key, 32 for the public key.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateSigningKeyPair creates a new Ed25519 key pair for signing reports.
func GenerateSigningKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// PublicKeyPath returns the public key file that pairs with a private key file.
func PublicKeyPath(privateKeyPath string) string {
	return strings.TrimSuffix(privateKeyPath, ".key") + ".pub"
}

// KeyID is a short fingerprint of a public key, recorded in signed reports.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}

// WriteKeyPair generates a key pair and stores the raw keys next to each
// other. It refuses to overwrite an existing private key.
func WriteKeyPair(privateKeyPath string) (string, error) {
	if _, err := os.Stat(privateKeyPath); err == nil {
		return "", fmt.Errorf("a signing key already exists at %s", privateKeyPath)
	}

	pubKey, privKey, err := GenerateSigningKeyPair()
	if err != nil {
		return "", fmt.Errorf("failed to generate signing key pair: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(privateKeyPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}

	pubKeyPath := PublicKeyPath(privateKeyPath)
	if err := os.WriteFile(privateKeyPath, privKey, 0600); err != nil {
		return "", fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubKeyPath, pubKey, 0644); err != nil {
		return "", fmt.Errorf("failed to write public key: %w", err)
	}
	return pubKeyPath, nil
}

// LoadPrivateKey reads a raw private key file.
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	data, err := readKey(path, ed25519.PrivateKeySize, "private")
	return ed25519.PrivateKey(data), err
}

// LoadPublicKey reads a raw public key file.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := readKey(path, ed25519.PublicKeySize, "public")
	return ed25519.PublicKey(data), err
}

func readKey(path string, size int, kind string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s key file: %w", kind, err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("invalid %s key size in %s: expected %d bytes, got %d", kind, path, size, len(data))
	}
	return data, nil
}
