package httpgw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"restorable.io/restorectl/internal/model"
)

// flexID accepts ids encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) int64() int64 {
	n, _ := f.parse()
	return n
}

// parse returns the numeric id. An empty id is 0.
func (f flexID) parse() (int64, error) {
	if f == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric id %q", string(f))
	}
	return n, nil
}

// flexBool accepts booleans encoded as true/false, 0/1 or "0"/"1".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// flexTime accepts RFC 3339 and "2006-01-02 15:04:05" timestamps.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*t = flexTime(time.Time{})
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = flexTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

type backupWire struct {
	BackupableType string `json:"backupable_type"`
	BackupableID   flexID `json:"backupable_id"`
}

type storageInfoWire struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type siteWire struct {
	ID          flexID           `json:"id"`
	UserID      flexID           `json:"user_id"`
	Name        string           `json:"name"`
	Storage     string           `json:"storage"`
	BackupType  string           `json:"backup_type"`
	StatusCode  int              `json:"status_code"`
	Archived    flexBool         `json:"archived"`
	CanRestore  flexBool         `json:"can_restore"`
	ServerID    flexID           `json:"server_id"`
	Contain     string           `json:"contain"`
	StorageInfo *storageInfoWire `json:"storageInfo"`
	// StorageInfoSnake is accepted when the camelCase key is absent.
	StorageInfoSnake *storageInfoWire `json:"storage_info"`
	Backups          []backupWire     `json:"backups"`
}

func (w siteWire) toModel() model.Site {
	site := model.Site{
		ID:         w.ID.int64(),
		UserID:     w.UserID.int64(),
		Name:       w.Name,
		Storage:    w.Storage,
		BackupType: w.BackupType,
		StatusCode: w.StatusCode,
		Archived:   bool(w.Archived),
		CanRestore: bool(w.CanRestore),
		ServerID:   w.ServerID.int64(),
		Contain:    w.Contain,
	}
	info := w.StorageInfo
	if info == nil {
		info = w.StorageInfoSnake
	}
	if info != nil {
		site.StorageInfo = &model.StorageInfo{Icon: info.Icon, Label: info.Label, Slug: info.Slug}
	}
	for _, b := range w.Backups {
		site.Backups = append(site.Backups, b.toModel())
	}
	return site
}

// toModel decides the association variant. An unparsable id makes the
// association unknown so it never counts toward the current target.
func (b backupWire) toModel() model.Backupable {
	kind := model.ParseBackupableKind(b.BackupableType)
	id, err := b.BackupableID.parse()
	if err != nil {
		return model.Backupable{
			Kind:    model.BackupableUnknown,
			RawType: fmt.Sprintf("%s (%v)", b.BackupableType, err),
		}
	}
	return model.Backupable{Kind: kind, ID: id, RawType: b.BackupableType}
}

type serverWire struct {
	ID     flexID   `json:"id"`
	Name   string   `json:"name"`
	Online flexBool `json:"online"`
	UserID flexID   `json:"user_id"`
}

func (w serverWire) toModel() model.Server {
	return model.Server{ID: w.ID.int64(), Name: w.Name, Online: bool(w.Online), UserID: w.UserID.int64()}
}

// versionControlWire ignores the atomic_project relation; only the atomic flag decides.
type versionControlWire struct {
	WebApplicationID flexID   `json:"web_application_id"`
	Atomic           flexBool `json:"atomic"`
}

func (w versionControlWire) toModel() *model.VersionControl {
	return &model.VersionControl{WebApplicationID: w.WebApplicationID.int64(), Atomic: bool(w.Atomic)}
}

type webAppWire struct {
	ID             flexID              `json:"id"`
	ServerID       flexID              `json:"server_id"`
	Name           string              `json:"name"`
	VersionControl *versionControlWire `json:"version_control"`
}

func (w webAppWire) toModel() model.WebApplication {
	app := model.WebApplication{ID: w.ID.int64(), ServerID: w.ServerID.int64(), Name: w.Name}
	if w.VersionControl != nil {
		app.VersionControl = w.VersionControl.toModel()
		if app.VersionControl.WebApplicationID == 0 {
			app.VersionControl.WebApplicationID = app.ID
		}
	}
	return app
}

type databaseWire struct {
	ID       flexID `json:"id"`
	ServerID flexID `json:"server_id"`
	Name     string `json:"name"`
}

func (w databaseWire) toModel() model.Database {
	return model.Database{ID: w.ID.int64(), ServerID: w.ServerID.int64(), Name: w.Name}
}

type snapshotWire struct {
	ID        flexID   `json:"id"`
	SiteID    flexID   `json:"site_id"`
	Type      string   `json:"type"`
	Path      string   `json:"path"`
	Size      int64    `json:"size"`
	Checksum  string   `json:"checksum"`
	Encrypted flexBool `json:"encrypted"`
	CreatedAt flexTime `json:"created_at"`
}

func (w snapshotWire) toModel(siteID int64, group string) model.Snapshot {
	s := model.Snapshot{
		ID:        string(w.ID),
		SiteID:    w.SiteID.int64(),
		Type:      w.Type,
		Path:      w.Path,
		SizeBytes: w.Size,
		Checksum:  w.Checksum,
		Encrypted: bool(w.Encrypted),
		CreatedAt: time.Time(w.CreatedAt),
	}
	if s.SiteID == 0 {
		s.SiteID = siteID
	}
	if s.Type == "" {
		s.Type = group
	}
	return s
}

// decodeSnapshots reads a snapshot selection, either a flat list or an object
// keyed by snapshot type.
func decodeSnapshots(raw json.RawMessage, siteID int64) ([]model.Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []model.Snapshot{}, nil
	}

	if raw[0] == '[' {
		var flat []snapshotWire
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot list: %w", err)
		}
		out := make([]model.Snapshot, 0, len(flat))
		for _, w := range flat {
			out = append(out, w.toModel(siteID, ""))
		}
		return out, nil
	}

	var grouped map[string][]snapshotWire
	if err := json.Unmarshal(raw, &grouped); err != nil {
		return nil, fmt.Errorf("failed to decode grouped snapshots: %w", err)
	}
	types := make([]string, 0, len(grouped))
	for t := range grouped {
		types = append(types, t)
	}
	sort.Strings(types)

	out := []model.Snapshot{}
	for _, t := range types {
		for _, w := range grouped[t] {
			out = append(out, w.toModel(siteID, t))
		}
	}
	return out, nil
}
