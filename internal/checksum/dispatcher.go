// Package checksum routes backup integrity verification to the backend that
// can reach the artifact and turns its verdict into a hard failure.
package checksum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"restorable.io/restorectl/internal/logging"
	"restorable.io/restorectl/internal/model"
)

// BackendKind names a verification backend.
type BackendKind string

const (
	// BackendServer runs the checksum on the server holding a local backup.
	BackendServer BackendKind = "server"
	// BackendBackup fetches a remote content digest from the storage provider.
	BackendBackup BackendKind = "backup"
)

var (
	// ErrIntegrityFailure is matched by every failed verification verdict.
	ErrIntegrityFailure = errors.New("integrity check failed")
	// ErrNoSnapshot is returned when there is nothing to verify.
	ErrNoSnapshot = errors.New("no snapshot to verify")
)

// Request is the payload sent to a verification backend.
type Request struct {
	Snapshot model.Snapshot `json:"backupData"`
	Storage  string         `json:"storage"`
}

// Response is a backend's verdict.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Backend verifies the integrity of one snapshot.
type Backend interface {
	VerifyChecksum(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

func (f BackendFunc) VerifyChecksum(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// IntegrityError reports a snapshot that failed verification.
type IntegrityError struct {
	SnapshotID string
	Storage    string
	Backend    BackendKind
	Message    string
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("backup %s on %s did not pass the integrity check, the backup may be corrupt or broken", e.SnapshotID, e.Storage)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Is makes errors.Is(err, ErrIntegrityFailure) match.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityFailure
}

// Outcome records a completed verification.
type Outcome struct {
	Success    bool        `json:"success"`
	Backend    BackendKind `json:"backend"`
	SnapshotID string      `json:"snapshot_id"`
	Storage    string      `json:"storage"`
	ServerID   int64       `json:"server_id"`
	Message    string      `json:"message,omitempty"`
	CheckedAt  time.Time   `json:"checked_at"`
}

// SelectBackend returns the backend responsible for backups on storage.
func SelectBackend(storage string) BackendKind {
	if storage == model.StorageLocal {
		return BackendServer
	}
	return BackendBackup
}

// Dispatcher sends verification requests to the server or backup backend.
// It applies no retries and no timeout of its own.
type Dispatcher struct {
	server Backend
	backup Backend
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(server, backup Backend, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		server: server,
		backup: backup,
		logger: logging.OrDiscard(logger),
		now:    time.Now,
	}
}

// Verify checks the first of snapshots, annotated with serverID, against the
// backend selected for storage. A negative verdict is returned as an
// *IntegrityError together with the outcome; transport errors are returned
// unchanged.
func (d *Dispatcher) Verify(ctx context.Context, snapshots []model.Snapshot, storage string, serverID int64) (Outcome, error) {
	if len(snapshots) == 0 {
		return Outcome{}, ErrNoSnapshot
	}

	kind := SelectBackend(storage)
	backend := d.backup
	if kind == BackendServer {
		backend = d.server
	}
	if backend == nil {
		return Outcome{}, fmt.Errorf("no %s verification backend configured", kind)
	}

	snapshot := snapshots[0]
	snapshot.ServerID = serverID

	d.logger.Info("verifying backup checksum",
		"snapshot_id", snapshot.ID, "storage", storage, "backend", string(kind), "server_id", serverID)

	resp, err := backend.VerifyChecksum(ctx, Request{Snapshot: snapshot, Storage: storage})
	if err != nil {
		return Outcome{}, fmt.Errorf("checksum verification of backup %s via %s backend: %w", snapshot.ID, kind, err)
	}

	outcome := Outcome{
		Success:    resp.Success,
		Backend:    kind,
		SnapshotID: snapshot.ID,
		Storage:    storage,
		ServerID:   serverID,
		Message:    resp.Message,
		CheckedAt:  d.now().UTC(),
	}
	if !resp.Success {
		d.logger.Error("backup failed integrity check",
			"snapshot_id", snapshot.ID, "storage", storage, "backend", string(kind), "message", resp.Message)
		return outcome, &IntegrityError{
			SnapshotID: snapshot.ID,
			Storage:    storage,
			Backend:    kind,
			Message:    resp.Message,
		}
	}
	return outcome, nil
}
