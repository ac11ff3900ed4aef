package catalog

import (
	"context"
	"errors"
	"testing"

	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := Open(ctx, SQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	f, err := LoadFixture("testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
	if err := s.Seed(ctx, f); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, SQLite, ":memory:", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	applied, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0001_catalog" {
		t.Fatalf("unexpected applied migrations: %v", applied)
	}

	applied, err = s.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no migrations on second run, got %v", applied)
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn", nil); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestGetSite(t *testing.T) {
	s := newTestStore(t)

	site, err := s.GetSite(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}
	if site.Name != "blog" || site.ServerID != 5 || !site.CanRestore || site.Archived {
		t.Fatalf("unexpected site: %+v", site)
	}
	if site.StorageInfo == nil || site.StorageInfo.Label != "Amazon S3" {
		t.Fatalf("unexpected storage info: %+v", site.StorageInfo)
	}
	if len(site.Backups) != 2 ||
		site.Backups[0].Kind != model.BackupableWebApplication || site.Backups[0].ID != 11 ||
		site.Backups[1].Kind != model.BackupableDatabase || site.Backups[1].ID != 12 {
		t.Fatalf("unexpected backups: %+v", site.Backups)
	}

	orphan, err := s.GetSite(context.Background(), 43)
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}
	if orphan.ServerID != 0 || len(orphan.Backups) != 0 || orphan.StorageInfo != nil {
		t.Fatalf("unexpected orphan site: %+v", orphan)
	}
}

func TestGetSiteNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSite(context.Background(), 999)
	if !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListServers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	online, err := s.ListServers(ctx, gateway.ServerQuery{OwnerID: 9, OnlineOnly: true})
	if err != nil {
		t.Fatalf("ListServers failed: %v", err)
	}
	if len(online) != 1 || online[0].ID != 5 {
		t.Fatalf("expected only server 5, got %+v", online)
	}

	all, err := s.ListServers(ctx, gateway.ServerQuery{OwnerID: 9})
	if err != nil {
		t.Fatalf("ListServers failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 servers, got %+v", all)
	}

	none, err := s.ListServers(ctx, gateway.ServerQuery{OwnerID: 1234, OnlineOnly: true})
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v, %v", none, err)
	}
}

func TestListSnapshots(t *testing.T) {
	s := newTestStore(t)

	snaps, err := s.ListSnapshots(context.Background(), gateway.SnapshotQuery{SiteID: 42, GroupByType: true})
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	var ids []string
	for _, snap := range snaps {
		ids = append(ids, snap.ID)
	}
	want := []string{"snap-db", "snap-new", "snap-old"}
	if len(ids) != len(want) {
		t.Fatalf("snapshot ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("snapshot ids = %v, want %v", ids, want)
		}
	}
	if snaps[1].Checksum != "md5:900150983cd24fb0d6963f7d28e17f72" || snaps[1].SiteID != 42 {
		t.Fatalf("unexpected snapshot: %+v", snaps[1])
	}

	empty, err := s.ListSnapshots(context.Background(), gateway.SnapshotQuery{SiteID: 43})
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no snapshots, got %+v, %v", empty, err)
	}
}

func TestGetVersionControl(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vc, err := s.GetVersionControl(ctx, 14)
	if err != nil {
		t.Fatalf("GetVersionControl failed: %v", err)
	}
	if vc == nil || !vc.Atomic {
		t.Fatalf("expected atomic version control, got %+v", vc)
	}

	vc, err = s.GetVersionControl(ctx, 15)
	if err != nil || vc != nil {
		t.Fatalf("expected nil, nil for missing record, got %+v, %v", vc, err)
	}
}

func TestListWebApplicationsAndDatabases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	apps, err := s.ListWebApplications(ctx, 5)
	if err != nil {
		t.Fatalf("ListWebApplications failed: %v", err)
	}
	if len(apps) != 3 {
		t.Fatalf("expected 3 web applications, got %+v", apps)
	}
	if apps[0].VersionControl == nil || apps[0].VersionControl.Atomic {
		t.Fatalf("expected non-atomic version control on app 11, got %+v", apps[0].VersionControl)
	}
	if apps[1].VersionControl == nil || !apps[1].VersionControl.Atomic {
		t.Fatalf("expected atomic version control on app 14, got %+v", apps[1].VersionControl)
	}
	if apps[2].VersionControl != nil {
		t.Fatalf("expected no version control on app 15, got %+v", apps[2].VersionControl)
	}

	dbs, err := s.ListDatabases(ctx, 5)
	if err != nil {
		t.Fatalf("ListDatabases failed: %v", err)
	}
	if len(dbs) != 1 || dbs[0].Name != "blog_db" {
		t.Fatalf("unexpected databases: %+v", dbs)
	}

	empty, err := s.ListWebApplications(ctx, 99)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %#v, %v", empty, err)
	}
}
