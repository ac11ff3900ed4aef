package crypto

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// AgeDecryptor decrypts age-encrypted snapshot artifacts so their plaintext
// digest can be compared with the recorded checksum.
type AgeDecryptor struct {
	identities []age.Identity
}

// NewAgeDecryptor creates a decryptor from an identity file.
func NewAgeDecryptor(identityPath string) (*AgeDecryptor, error) {
	keyData, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read age identity from %s: %w", identityPath, err)
	}
	return parseIdentities(bytes.NewReader(keyData), identityPath)
}

// NewAgeDecryptorFromEnv creates a decryptor from an identity held in an environment variable.
func NewAgeDecryptorFromEnv(envVar string) (*AgeDecryptor, error) {
	keyData := os.Getenv(envVar)
	if keyData == "" {
		return nil, fmt.Errorf("age identity environment variable %s is not set", envVar)
	}
	return parseIdentities(strings.NewReader(keyData), "environment variable "+envVar)
}

func parseIdentities(r io.Reader, source string) (*AgeDecryptor, error) {
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse age identities from %s: %w", source, err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no age identities found in %s", source)
	}
	return &AgeDecryptor{identities: identities}, nil
}

// Decrypt wraps r with age decryption.
func (d *AgeDecryptor) Decrypt(r io.Reader) (io.Reader, error) {
	decrypted, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return nil, fmt.Errorf("age decryption failed: %w", err)
	}
	return decrypted, nil
}

// DecryptReadCloser reads plaintext while closing the underlying ciphertext stream.
type DecryptReadCloser struct {
	decrypted io.Reader
	original  io.ReadCloser
}

// NewDecryptReadCloser creates a decrypting ReadCloser. The original stream is
// not closed when decryption cannot start.
func (d *AgeDecryptor) NewDecryptReadCloser(rc io.ReadCloser) (*DecryptReadCloser, error) {
	decrypted, err := d.Decrypt(rc)
	if err != nil {
		return nil, err
	}
	return &DecryptReadCloser{decrypted: decrypted, original: rc}, nil
}

func (d *DecryptReadCloser) Read(p []byte) (n int, err error) {
	return d.decrypted.Read(p)
}

func (d *DecryptReadCloser) Close() error {
	return d.original.Close()
}
