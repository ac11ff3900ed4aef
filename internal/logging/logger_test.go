package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFileAndConsole(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "restorectl.log")
	var console bytes.Buffer

	logger, closer := New(Options{
		Level:      "debug",
		Format:     "json",
		File:       logPath,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Stderr:     &console,
	})
	logger.Debug("resolved", "site_id", 7)
	if err := closer.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	if !strings.Contains(console.String(), `"site_id":7`) {
		t.Fatalf("missing console output; got: %s", console.String())
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "resolved") {
		t.Fatalf("missing file output; got: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected a logger")
	}
}
