package report

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"restorable.io/restorectl/internal/signing"
)

var (
	// ErrUnsigned is returned when verifying a report that carries no signature.
	ErrUnsigned = errors.New("report is not signed")
	// ErrKeyMismatch is returned when a report was signed by a different key.
	ErrKeyMismatch = errors.New("report was signed by another key")
)

// signedBytes is the encoding covered by a signature: the report without its
// signature, but including the signing key id.
func signedBytes(report *Report) ([]byte, error) {
	unsigned := *report
	unsigned.Signature = ""
	return json.Marshal(&unsigned)
}

// Sign records the key id and stores an Ed25519 signature over the report.
func Sign(report *Report, privateKey ed25519.PrivateKey) error {
	pub, ok := privateKey.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("invalid private key")
	}
	report.SignedBy = signing.KeyID(pub)

	data, err := signedBytes(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for signing: %w", err)
	}
	report.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(privateKey, data))
	return nil
}

// Verify checks the signature against publicKey. A tampered report yields
// false with a nil error.
func Verify(report *Report, publicKey ed25519.PublicKey) (bool, error) {
	if report.Signature == "" {
		return false, ErrUnsigned
	}
	if report.SignedBy != "" {
		if id := signing.KeyID(publicKey); id != report.SignedBy {
			return false, fmt.Errorf("%w: signed by %s, verifying with %s", ErrKeyMismatch, report.SignedBy, id)
		}
	}

	signature, err := base64.StdEncoding.DecodeString(report.Signature)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	data, err := signedBytes(report)
	if err != nil {
		return false, fmt.Errorf("failed to marshal report for verification: %w", err)
	}
	return ed25519.Verify(publicKey, data, signature), nil
}
