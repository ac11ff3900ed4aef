package storage

import (
	"context"
	"strings"
	"testing"
)

func TestParseChecksum(t *testing.T) {
	sha := strings.Repeat("ab", 32)
	md := strings.Repeat("CD", 16)

	tests := []struct {
		raw      string
		algo     string
		digest   string
		hasError bool
	}{
		{raw: sha, algo: AlgorithmSHA256, digest: sha},
		{raw: "sha256:" + sha, algo: AlgorithmSHA256, digest: sha},
		{raw: "md5:" + md, algo: AlgorithmMD5, digest: strings.ToLower(md)},
		{raw: "MD5:" + md, algo: AlgorithmMD5, digest: strings.ToLower(md)},
		{raw: "", hasError: true},
		{raw: "zz", hasError: true},
		{raw: "md5:" + sha, hasError: true},
		{raw: "crc32:deadbeef", hasError: true},
	}

	for _, tt := range tests {
		algo, digest, err := ParseChecksum(tt.raw)
		if tt.hasError {
			if err == nil {
				t.Errorf("ParseChecksum(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChecksum(%q) failed: %v", tt.raw, err)
			continue
		}
		if algo != tt.algo || digest != tt.digest {
			t.Errorf("ParseChecksum(%q) = %s, %s", tt.raw, algo, digest)
		}
	}
}

func TestHashReader(t *testing.T) {
	got, err := HashReader(context.Background(), AlgorithmSHA256, strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("HashReader failed: %v", err)
	}
	if got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256 %s", got)
	}

	got, err = HashReader(context.Background(), AlgorithmMD5, strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("HashReader failed: %v", err)
	}
	if got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Fatalf("unexpected md5 %s", got)
	}
}

func TestHashReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := HashReader(ctx, AlgorithmSHA256, strings.NewReader("abc")); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
