package catalog

import (
	"time"

	"github.com/uptrace/bun"
	"restorable.io/restorectl/internal/model"
)

// SiteRow is the bun mapping of the sites table.
type SiteRow struct {
	bun.BaseModel `bun:"table:sites"`
	ID            int64  `bun:"id,pk"`
	UserID        int64  `bun:"user_id"`
	Name          string `bun:"name"`
	Storage       string `bun:"storage"`
	BackupType    string `bun:"backup_type"`
	StatusCode    int    `bun:"status_code"`
	Archived      bool   `bun:"archived"`
	CanRestore    bool   `bun:"can_restore"`
	ServerID      int64  `bun:"server_id,nullzero"`
	Contain       string `bun:"contain"`
	StorageIcon   string `bun:"storage_icon,nullzero"`
	StorageLabel  string `bun:"storage_label,nullzero"`
	StorageSlug   string `bun:"storage_slug,nullzero"`
}

// SiteBackupRow links a site to a web application or database.
type SiteBackupRow struct {
	bun.BaseModel  `bun:"table:site_backups"`
	ID             int64  `bun:"id,pk,autoincrement"`
	SiteID         int64  `bun:"site_id"`
	BackupableType string `bun:"backupable_type"`
	BackupableID   int64  `bun:"backupable_id"`
}

type SnapshotRow struct {
	bun.BaseModel `bun:"table:snapshots"`
	ID            string    `bun:"id,pk"`
	SiteID        int64     `bun:"site_id"`
	Type          string    `bun:"type"`
	Path          string    `bun:"path"`
	SizeBytes     int64     `bun:"size_bytes"`
	Checksum      string    `bun:"checksum"`
	Encrypted     bool      `bun:"encrypted"`
	CreatedAt     time.Time `bun:"created_at"`
}

type ServerRow struct {
	bun.BaseModel `bun:"table:servers"`
	ID            int64  `bun:"id,pk"`
	Name          string `bun:"name"`
	Online        bool   `bun:"online"`
	UserID        int64  `bun:"user_id"`
}

type WebApplicationRow struct {
	bun.BaseModel `bun:"table:web_applications"`
	ID            int64  `bun:"id,pk"`
	ServerID      int64  `bun:"server_id"`
	Name          string `bun:"name"`
}

type VersionControlRow struct {
	bun.BaseModel    `bun:"table:version_controls"`
	ID               int64 `bun:"id,pk,autoincrement"`
	WebApplicationID int64 `bun:"web_application_id"`
	Atomic           bool  `bun:"atomic"`
}

type DatabaseRow struct {
	bun.BaseModel `bun:"table:databases"`
	ID            int64  `bun:"id,pk"`
	ServerID      int64  `bun:"server_id"`
	Name          string `bun:"name"`
}

func siteRowToModel(r SiteRow, backups []SiteBackupRow) model.Site {
	site := model.Site{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Storage:    r.Storage,
		BackupType: r.BackupType,
		StatusCode: r.StatusCode,
		Archived:   r.Archived,
		CanRestore: r.CanRestore,
		ServerID:   r.ServerID,
		Contain:    r.Contain,
	}
	if r.StorageIcon != "" || r.StorageLabel != "" || r.StorageSlug != "" {
		site.StorageInfo = &model.StorageInfo{Icon: r.StorageIcon, Label: r.StorageLabel, Slug: r.StorageSlug}
	}
	for _, b := range backups {
		site.Backups = append(site.Backups, model.Backupable{
			Kind:    model.ParseBackupableKind(b.BackupableType),
			ID:      b.BackupableID,
			RawType: b.BackupableType,
		})
	}
	return site
}

func snapshotRowToModel(r SnapshotRow) model.Snapshot {
	return model.Snapshot{
		ID:        r.ID,
		SiteID:    r.SiteID,
		Type:      r.Type,
		Path:      r.Path,
		SizeBytes: r.SizeBytes,
		Checksum:  r.Checksum,
		Encrypted: r.Encrypted,
		CreatedAt: r.CreatedAt,
	}
}
