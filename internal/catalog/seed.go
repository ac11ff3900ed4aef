package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// Fixture is a catalogue snapshot that can be loaded into an empty database.
type Fixture struct {
	Sites           []SiteFixture           `yaml:"sites"`
	Servers         []ServerFixture         `yaml:"servers"`
	WebApplications []WebApplicationFixture `yaml:"web_applications"`
	Databases       []DatabaseFixture       `yaml:"databases"`
}

type SiteFixture struct {
	ID           int64             `yaml:"id"`
	UserID       int64             `yaml:"user_id"`
	Name         string            `yaml:"name"`
	Storage      string            `yaml:"storage"`
	BackupType   string            `yaml:"backup_type"`
	StatusCode   int               `yaml:"status_code"`
	Archived     bool              `yaml:"archived"`
	CanRestore   *bool             `yaml:"can_restore"`
	ServerID     int64             `yaml:"server_id"`
	Contain      string            `yaml:"contain"`
	StorageIcon  string            `yaml:"storage_icon"`
	StorageLabel string            `yaml:"storage_label"`
	StorageSlug  string            `yaml:"storage_slug"`
	Backups      []BackupFixture   `yaml:"backups"`
	Snapshots    []SnapshotFixture `yaml:"snapshots"`
}

type BackupFixture struct {
	Type string `yaml:"type"`
	ID   int64  `yaml:"id"`
}

type SnapshotFixture struct {
	ID        string    `yaml:"id"`
	Type      string    `yaml:"type"`
	Path      string    `yaml:"path"`
	SizeBytes int64     `yaml:"size_bytes"`
	Checksum  string    `yaml:"checksum"`
	Encrypted bool      `yaml:"encrypted"`
	CreatedAt time.Time `yaml:"created_at"`
}

type ServerFixture struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	Online *bool  `yaml:"online"`
	UserID int64  `yaml:"user_id"`
}

type WebApplicationFixture struct {
	ID       int64  `yaml:"id"`
	ServerID int64  `yaml:"server_id"`
	Name     string `yaml:"name"`
	// Atomic adds a version control record; nil means none.
	Atomic *bool `yaml:"atomic"`
}

type DatabaseFixture struct {
	ID       int64  `yaml:"id"`
	ServerID int64  `yaml:"server_id"`
	Name     string `yaml:"name"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Seed inserts the fixture in a single transaction.
func (s *Store) Seed(ctx context.Context, f *Fixture) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, site := range f.Sites {
			row := SiteRow{
				ID:           site.ID,
				UserID:       site.UserID,
				Name:         site.Name,
				Storage:      site.Storage,
				BackupType:   site.BackupType,
				StatusCode:   site.StatusCode,
				Archived:     site.Archived,
				CanRestore:   boolOr(site.CanRestore, true),
				ServerID:     site.ServerID,
				Contain:      site.Contain,
				StorageIcon:  site.StorageIcon,
				StorageLabel: site.StorageLabel,
				StorageSlug:  site.StorageSlug,
			}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert site %d: %w", site.ID, err)
			}

			for _, b := range site.Backups {
				br := SiteBackupRow{SiteID: site.ID, BackupableType: b.Type, BackupableID: b.ID}
				if _, err := tx.NewInsert().Model(&br).Exec(ctx); err != nil {
					return fmt.Errorf("failed to insert backup of site %d: %w", site.ID, err)
				}
			}

			for _, snap := range site.Snapshots {
				created := snap.CreatedAt
				if created.IsZero() {
					created = time.Now().UTC()
				}
				sr := SnapshotRow{
					ID:        snap.ID,
					SiteID:    site.ID,
					Type:      snap.Type,
					Path:      snap.Path,
					SizeBytes: snap.SizeBytes,
					Checksum:  snap.Checksum,
					Encrypted: snap.Encrypted,
					CreatedAt: created.UTC(),
				}
				if _, err := tx.NewInsert().Model(&sr).Exec(ctx); err != nil {
					return fmt.Errorf("failed to insert snapshot %s: %w", snap.ID, err)
				}
			}
		}

		for _, srv := range f.Servers {
			row := ServerRow{ID: srv.ID, Name: srv.Name, Online: boolOr(srv.Online, true), UserID: srv.UserID}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert server %d: %w", srv.ID, err)
			}
		}

		for _, app := range f.WebApplications {
			row := WebApplicationRow{ID: app.ID, ServerID: app.ServerID, Name: app.Name}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert web application %d: %w", app.ID, err)
			}
			if app.Atomic == nil {
				continue
			}
			vc := VersionControlRow{WebApplicationID: app.ID, Atomic: *app.Atomic}
			if _, err := tx.NewInsert().Model(&vc).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert version control of web application %d: %w", app.ID, err)
			}
		}

		for _, db := range f.Databases {
			row := DatabaseRow{ID: db.ID, ServerID: db.ServerID, Name: db.Name}
			if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert database %d: %w", db.ID, err)
			}
		}
		return nil
	})
}
