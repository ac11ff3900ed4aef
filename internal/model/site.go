package model

import "strings"

// Storage provider slugs as reported by the backup service.
const (
	StorageLocal    = "local"
	StorageSFTP     = "sftp"
	StorageRunCloud = "runcloud"
	StorageAmazon   = "amazon"
	StorageDOSpace  = "dospace"
)

// BackupableKind identifies which entity a backup association points at.
type BackupableKind int

const (
	BackupableUnknown BackupableKind = iota
	BackupableWebApplication
	BackupableDatabase
)

func (k BackupableKind) String() string {
	switch k {
	case BackupableWebApplication:
		return "WebApplication"
	case BackupableDatabase:
		return "Database"
	default:
		return "Unknown"
	}
}

// ParseBackupableKind maps the service's backupable_type string onto a kind.
// Both the namespaced form ("App\WebApplication") and the bare name are accepted.
func ParseBackupableKind(raw string) BackupableKind {
	name := raw
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "webapplication", "webapp":
		return BackupableWebApplication
	case "database":
		return BackupableDatabase
	default:
		return BackupableUnknown
	}
}

// Backupable is a single backup association of a site, decided once at ingestion.
type Backupable struct {
	Kind BackupableKind `json:"kind"`
	ID   int64          `json:"id"`
	// RawType keeps the original backupable_type for diagnostics when Kind is unknown.
	RawType string `json:"raw_type,omitempty"`
}

// StorageInfo is optional display metadata for a site's storage provider.
type StorageInfo struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Site represents a protected web application or database under backup management.
type Site struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Name        string       `json:"name"`
	Storage     string       `json:"storage"`
	BackupType  string       `json:"backup_type"`
	StatusCode  int          `json:"status_code"`
	Archived    bool         `json:"archived"`
	CanRestore  bool         `json:"can_restore"`
	ServerID    int64        `json:"server_id"`
	Contain     string       `json:"contain"`
	StorageInfo *StorageInfo `json:"storage_info,omitempty"`
	Backups     []Backupable `json:"backups"`
}

// Server is a restore destination candidate.
type Server struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
	UserID int64  `json:"user_id"`
}

// VersionControl describes the deployment mechanism of a web application.
type VersionControl struct {
	WebApplicationID int64 `json:"web_application_id"`
	Atomic           bool  `json:"atomic"`
}

// WebApplication is a web application hosted on a server.
type WebApplication struct {
	ID             int64           `json:"id"`
	ServerID       int64           `json:"server_id"`
	Name           string          `json:"name"`
	VersionControl *VersionControl `json:"version_control,omitempty"`
}

// Database is a database hosted on a server.
type Database struct {
	ID       int64  `json:"id"`
	ServerID int64  `json:"server_id"`
	Name     string `json:"name"`
}
