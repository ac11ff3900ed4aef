package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"restorable.io/restorectl/internal/model"
)

const defaultCommandTimeout = 10 * time.Minute

// CommandDigester runs a shell command that prints the artifact digest on
// stdout. The snapshot is described through RESTORECTL_SNAPSHOT_ID,
// RESTORECTL_SNAPSHOT_PATH and RESTORECTL_CHECKSUM_ALGORITHM. Empty output
// means the artifact does not exist.
type CommandDigester struct {
	Exec    string
	Timeout time.Duration
}

// Digest executes the command and returns the first field of its output.
func (c *CommandDigester) Digest(ctx context.Context, snap model.Snapshot, algorithm string) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultCommandTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Exec)
	cmd.Env = append(os.Environ(),
		"RESTORECTL_SNAPSHOT_ID="+snap.ID,
		"RESTORECTL_SNAPSHOT_PATH="+snap.Path,
		"RESTORECTL_CHECKSUM_ALGORITHM="+algorithm,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("command timed out after %v: %s", timeout, c.Exec)
		}
		return "", fmt.Errorf("command failed: %w\nstderr: %s", err, stderr.String())
	}

	fields := strings.Fields(stdout.String())
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: command printed no digest for %s", ErrArtifactNotFound, snap.Path)
	}
	return strings.ToLower(fields[0]), nil
}

// Identifier returns the command for traceability.
func (c *CommandDigester) Identifier() string {
	return fmt.Sprintf("command:%s", c.Exec)
}
