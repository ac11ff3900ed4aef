package signing

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteKeyPair(t *testing.T) {
	privPath := filepath.Join(t.TempDir(), "keys", "signing.key")

	pubPath, err := WriteKeyPair(privPath)
	if err != nil {
		t.Fatalf("WriteKeyPair failed: %v", err)
	}
	if pubPath != filepath.Join(filepath.Dir(privPath), "signing.pub") {
		t.Fatalf("unexpected public key path %s", pubPath)
	}

	priv, err := os.ReadFile(privPath)
	if err != nil || len(priv) != ed25519.PrivateKeySize {
		t.Fatalf("bad private key file: %d bytes, %v", len(priv), err)
	}
	pub, err := os.ReadFile(pubPath)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		t.Fatalf("bad public key file: %d bytes, %v", len(pub), err)
	}

	sig := ed25519.Sign(ed25519.PrivateKey(priv), []byte("msg"))
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte("msg"), sig) {
		t.Fatal("written keys do not form a pair")
	}

	info, err := os.Stat(privPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("private key permissions = %v", info.Mode().Perm())
	}

	if _, err := WriteKeyPair(privPath); err == nil {
		t.Fatal("expected refusal to overwrite an existing key")
	}
}

func TestLoadKeys(t *testing.T) {
	privPath := filepath.Join(t.TempDir(), "signing.key")
	pubPath, err := WriteKeyPair(privPath)
	if err != nil {
		t.Fatalf("WriteKeyPair failed: %v", err)
	}

	priv, err := LoadPrivateKey(privPath)
	if err != nil {
		t.Fatalf("LoadPrivateKey failed: %v", err)
	}
	pub, err := LoadPublicKey(pubPath)
	if err != nil {
		t.Fatalf("LoadPublicKey failed: %v", err)
	}
	if KeyID(pub) != KeyID(priv.Public().(ed25519.PublicKey)) {
		t.Fatal("loaded keys do not form a pair")
	}
	if len(KeyID(pub)) != 16 {
		t.Fatalf("unexpected key id %q", KeyID(pub))
	}

	// A public key is too short to load as a private key.
	if _, err := LoadPrivateKey(pubPath); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := LoadPublicKey(filepath.Join(t.TempDir(), "missing.pub")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
