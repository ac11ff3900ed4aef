package httpgw

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/model"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
	auth   string
	reqID  string
}

type fakeService struct {
	mu       sync.Mutex
	routes   map[string]func(w http.ResponseWriter)
	requests []recorded
}

func (f *fakeService) route(key string, h func(w http.ResponseWriter)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil {
		delete(f.routes, key)
		return
	}
	f.routes[key] = h
}

func (f *fakeService) request(i int) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	f := &fakeService{routes: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), reqID: r.Header.Get(RequestIDHeader)}
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &rec.body); err != nil {
				t.Errorf("request body is not JSON: %s", data)
			}
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		handler, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newTestClient(t *testing.T, backup, server *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{BackupURL: backup.URL + "/", ServerURL: server.URL, Token: "tok", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestGetSite(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)
	backup.route("GET /internal/resources/find/Site/first", respond(200, `{
		"id": 42, "user_id": "9", "name": "blog", "storage": "amazon", "backup_type": "full",
		"status_code": 1, "archived": 0, "can_restore": true, "server_id": 5, "contain": "webapp",
		"storage_info": {"icon": "aws", "label": "Amazon S3", "slug": "amazon"},
		"backups": [
			{"backupable_type": "App\\WebApplication", "backupable_id": 11},
			{"backupable_type": "App\\Database", "backupable_id": "12"},
			{"backupable_type": "App\\Mailbox", "backupable_id": 13}
		]
	}`))

	c := newTestClient(t, backupSrv, serverSrv)
	site, err := c.GetSite(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}

	if site.ID != 42 || site.UserID != 9 || site.ServerID != 5 || !site.CanRestore || site.Archived {
		t.Fatalf("unexpected site: %+v", site)
	}
	if site.StorageInfo == nil || site.StorageInfo.Label != "Amazon S3" {
		t.Fatalf("unexpected storage info: %+v", site.StorageInfo)
	}
	want := []model.BackupableKind{model.BackupableWebApplication, model.BackupableDatabase, model.BackupableUnknown}
	if len(site.Backups) != len(want) {
		t.Fatalf("expected %d backups, got %+v", len(want), site.Backups)
	}
	for i, k := range want {
		if site.Backups[i].Kind != k {
			t.Errorf("backup %d kind = %v, want %v", i, site.Backups[i].Kind, k)
		}
	}
	if site.Backups[1].ID != 12 {
		t.Errorf("string backupable_id not parsed: %+v", site.Backups[1])
	}

	req := backup.request(0)
	if req.auth != "Bearer tok" || req.reqID == "" {
		t.Fatalf("missing auth or request id headers: %+v", req)
	}
	where, _ := req.body["where"].(map[string]any)
	if where["id"] != float64(42) || req.body["includes"] != "backups" {
		t.Fatalf("unexpected payload: %+v", req.body)
	}
}

func TestGetSiteStorageInfoKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"camel case", `{"id": 42, "storage": "amazon", "storageInfo": {"icon": "aws", "label": "Amazon S3", "slug": "amazon"}}`},
		{"snake case", `{"id": 42, "storage": "amazon", "storage_info": {"icon": "aws", "label": "Amazon S3", "slug": "amazon"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backup, backupSrv := newFakeService(t)
			_, serverSrv := newFakeService(t)
			backup.route("GET /internal/resources/find/Site/first", respond(200, tt.body))

			site, err := newTestClient(t, backupSrv, serverSrv).GetSite(context.Background(), 42)
			if err != nil {
				t.Fatalf("GetSite failed: %v", err)
			}
			want := model.StorageInfo{Icon: "aws", Label: "Amazon S3", Slug: "amazon"}
			if site.StorageInfo == nil || *site.StorageInfo != want {
				t.Fatalf("storage info = %+v, want %+v", site.StorageInfo, want)
			}
		})
	}
}

func TestGetSiteMalformedBackupableID(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)
	backup.route("GET /internal/resources/find/Site/first", respond(200, `{
		"id": 42, "storage": "amazon", "server_id": 5,
		"backups": [{"backupable_type": "App\\WebApplication", "backupable_id": "11a"}]
	}`))

	site, err := newTestClient(t, backupSrv, serverSrv).GetSite(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetSite failed: %v", err)
	}
	if len(site.Backups) != 1 {
		t.Fatalf("expected 1 backup, got %+v", site.Backups)
	}
	b := site.Backups[0]
	if b.Kind != model.BackupableUnknown || b.ID != 0 {
		t.Fatalf("unparsable id must yield an unknown association, got %+v", b)
	}
	if !strings.Contains(b.RawType, "WebApplication") || !strings.Contains(b.RawType, "11a") {
		t.Fatalf("raw type should keep the original type and the bad id, got %q", b.RawType)
	}
}

func TestGetSiteNotFound(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)
	backup.route("GET /internal/resources/find/Site/first", respond(200, `null`))

	c := newTestClient(t, backupSrv, serverSrv)
	if _, err := c.GetSite(context.Background(), 1); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for null body, got %v", err)
	}

	backup.route("GET /internal/resources/find/Site/first", nil)
	if _, err := c.GetSite(context.Background(), 1); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for 404, got %v", err)
	}
}

func TestUpstreamErrors(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)
	backup.route("GET /internal/resources/find/Site/first", respond(503, `{"message":"down"}`))

	c := newTestClient(t, backupSrv, serverSrv)
	if _, err := c.GetSite(context.Background(), 1); !errors.Is(err, gateway.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable for 503, got %v", err)
	}

	backup.route("GET /internal/resources/find/Site/first", respond(422, `{"message":"bad"}`))
	_, err := c.GetSite(context.Background(), 1)
	if err == nil || errors.Is(err, gateway.ErrUpstreamUnavailable) || errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected plain error for 422, got %v", err)
	}

	backupSrv.Close()
	if _, err := c.GetSite(context.Background(), 1); !errors.Is(err, gateway.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable for closed server, got %v", err)
	}
}

func TestListServers(t *testing.T) {
	_, backupSrv := newFakeService(t)
	server, serverSrv := newFakeService(t)
	server.route("GET /internal/resources/find/Server/get", respond(200, `[
		{"id": 5, "name": "web-1", "online": 1, "user_id": 9},
		{"id": 6, "name": "web-2", "online": true, "user_id": 9}
	]`))

	c := newTestClient(t, backupSrv, serverSrv)
	servers, err := c.ListServers(context.Background(), gateway.ServerQuery{OwnerID: 9, OnlineOnly: true})
	if err != nil {
		t.Fatalf("ListServers failed: %v", err)
	}
	if len(servers) != 2 || servers[0].Name != "web-1" || !servers[0].Online {
		t.Fatalf("unexpected servers: %+v", servers)
	}

	where, _ := server.request(0).body["where"].(map[string]any)
	if where["user_id"] != float64(9) || where["online"] != true {
		t.Fatalf("unexpected where clause: %+v", where)
	}
}

func TestListServersEmpty(t *testing.T) {
	_, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)

	c := newTestClient(t, backupSrv, serverSrv)
	servers, err := c.ListServers(context.Background(), gateway.ServerQuery{OwnerID: 9})
	if err != nil {
		t.Fatalf("ListServers failed: %v", err)
	}
	if servers == nil || len(servers) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", servers)
	}
}

func TestListSnapshots(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	_, serverSrv := newFakeService(t)
	backup.route("GET /internal/selection/42/snapshots", respond(200, `{
		"files": [{"id": 1, "path": "f1.tar", "checksum": "abc", "created_at": "2024-03-01 10:00:00"}],
		"database": [{"id": "d1", "type": "database", "path": "d1.sql", "created_at": "2024-03-01T10:00:00Z"}]
	}`))

	c := newTestClient(t, backupSrv, serverSrv)
	snaps, err := c.ListSnapshots(context.Background(), gateway.SnapshotQuery{SiteID: 42, GroupByType: true})
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %+v", snaps)
	}
	if snaps[0].ID != "d1" || snaps[1].ID != "1" || snaps[1].Type != "files" || snaps[1].SiteID != 42 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if snaps[1].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be parsed")
	}

	body := backup.request(0).body
	if body["withType"] != true || body["group"] != true {
		t.Fatalf("unexpected selection payload: %+v", body)
	}
}

func TestGetVersionControl(t *testing.T) {
	_, backupSrv := newFakeService(t)
	server, serverSrv := newFakeService(t)
	server.route("GET /internal/resources/find/VersionControl/first", respond(200, `{"web_application_id": 11, "atomic": true}`))

	c := newTestClient(t, backupSrv, serverSrv)
	vc, err := c.GetVersionControl(context.Background(), 11)
	if err != nil {
		t.Fatalf("GetVersionControl failed: %v", err)
	}
	if vc == nil || !vc.Atomic || vc.WebApplicationID != 11 {
		t.Fatalf("unexpected version control: %+v", vc)
	}

	server.route("GET /internal/resources/find/VersionControl/first", respond(200, `null`))
	vc, err = c.GetVersionControl(context.Background(), 11)
	if err != nil || vc != nil {
		t.Fatalf("expected nil, nil for absent record, got %+v, %v", vc, err)
	}
}

func TestGetVersionControlIgnoresAtomicProject(t *testing.T) {
	_, backupSrv := newFakeService(t)
	server, serverSrv := newFakeService(t)
	server.route("GET /internal/resources/find/VersionControl/first",
		respond(200, `{"web_application_id": 11, "atomic": false, "atomic_project": {"id": 3}}`))

	c := newTestClient(t, backupSrv, serverSrv)
	vc, err := c.GetVersionControl(context.Background(), 11)
	if err != nil {
		t.Fatalf("GetVersionControl failed: %v", err)
	}
	if vc == nil || vc.Atomic {
		t.Fatalf("expected non-atomic version control, got %+v", vc)
	}
}

func TestListWebApplicationsAndDatabases(t *testing.T) {
	_, backupSrv := newFakeService(t)
	server, serverSrv := newFakeService(t)
	server.route("GET /internal/resources/find/WebApplication/get", respond(200, `[
		{"id": 1, "server_id": 5, "name": "plain", "version_control": null},
		{"id": 2, "server_id": 5, "name": "deployer", "version_control": {"atomic": 1, "atomic_project": {"id": 3}}},
		{"id": 3, "server_id": 5, "name": "linked", "version_control": {"atomic": 0, "atomic_project": {"id": 4}}}
	]`))
	server.route("GET /internal/resources/find/Database/get", respond(200, `[{"id": 7, "server_id": 5, "name": "wp"}]`))

	c := newTestClient(t, backupSrv, serverSrv)
	apps, err := c.ListWebApplications(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListWebApplications failed: %v", err)
	}
	if len(apps) != 3 || apps[0].VersionControl != nil {
		t.Fatalf("unexpected apps: %+v", apps)
	}
	if vc := apps[1].VersionControl; vc == nil || !vc.Atomic || vc.WebApplicationID != 2 {
		t.Fatalf("expected atomic version control, got %+v", vc)
	}
	if vc := apps[2].VersionControl; vc == nil || vc.Atomic {
		t.Fatalf("atomic_project must not override atomic=0, got %+v", vc)
	}

	dbs, err := c.ListDatabases(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListDatabases failed: %v", err)
	}
	if len(dbs) != 1 || dbs[0].Name != "wp" {
		t.Fatalf("unexpected databases: %+v", dbs)
	}
}

func TestChecksumBackend(t *testing.T) {
	backup, backupSrv := newFakeService(t)
	server, serverSrv := newFakeService(t)
	server.route("POST "+ChecksumPath, respond(200, `{"success": true}`))
	backup.route("POST "+ChecksumPath, respond(200, `{"success": false}`))

	c := newTestClient(t, backupSrv, serverSrv)
	req := checksum.Request{Snapshot: model.Snapshot{ID: "s1", ServerID: 5}, Storage: model.StorageLocal}

	resp, err := c.ChecksumBackend(ServiceServer).VerifyChecksum(context.Background(), req)
	if err != nil || !resp.Success {
		t.Fatalf("expected success from server service, got %+v, %v", resp, err)
	}
	body := server.request(0).body
	data, _ := body["backupData"].(map[string]any)
	if data["server_id"] != float64(5) || body["storage"] != "local" {
		t.Fatalf("unexpected verification payload: %+v", body)
	}

	req.Storage = model.StorageAmazon
	resp, err = c.ChecksumBackend(ServiceBackup).VerifyChecksum(context.Background(), req)
	if err != nil || resp.Success {
		t.Fatalf("expected failed verdict from backup service, got %+v, %v", resp, err)
	}
}

func TestNewRequiresURLs(t *testing.T) {
	if _, err := New(Options{BackupURL: "http://b"}); err == nil {
		t.Fatal("expected error without server URL")
	}
}
