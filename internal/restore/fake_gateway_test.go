package restore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/model"
)

// barrier releases its waiters once n parties have arrived.
type barrier struct {
	n       int32
	arrived atomic.Int32
	done    chan struct{}
}

func newBarrier(n int32) *barrier {
	return &barrier{n: n, done: make(chan struct{})}
}

func (b *barrier) arrive() error {
	if b.arrived.Add(1) == b.n {
		close(b.done)
	}
	select {
	case <-b.done:
		return nil
	case <-time.After(2 * time.Second):
		return fmt.Errorf("lookups did not run concurrently")
	}
}

type fakeGateway struct {
	mu        sync.Mutex
	sites     map[int64]model.Site
	servers   []model.Server
	snapshots map[int64][]model.Snapshot
	versions  map[int64]*model.VersionControl
	webapps   map[int64][]model.WebApplication
	databases map[int64][]model.Database

	siteErr      error
	serversErr   error
	snapshotsErr error
	versionErr   error

	// blockServers makes ListServers wait for context cancellation.
	blockServers bool
	barrier      *barrier

	serverQueries []gateway.ServerQuery
	versionCalls  []int64
}

func (f *fakeGateway) GetSite(ctx context.Context, siteID int64) (model.Site, error) {
	if f.barrier != nil {
		if err := f.barrier.arrive(); err != nil {
			return model.Site{}, err
		}
	}
	if f.siteErr != nil {
		return model.Site{}, f.siteErr
	}
	site, ok := f.sites[siteID]
	if !ok {
		return model.Site{}, fmt.Errorf("site %d: %w", siteID, gateway.ErrNotFound)
	}
	return site, nil
}

func (f *fakeGateway) ListServers(ctx context.Context, q gateway.ServerQuery) ([]model.Server, error) {
	f.mu.Lock()
	f.serverQueries = append(f.serverQueries, q)
	f.mu.Unlock()
	if f.barrier != nil {
		if err := f.barrier.arrive(); err != nil {
			return nil, err
		}
	}
	if f.blockServers {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.serversErr != nil {
		return nil, f.serversErr
	}
	return f.servers, nil
}

func (f *fakeGateway) ListSnapshots(ctx context.Context, q gateway.SnapshotQuery) ([]model.Snapshot, error) {
	if f.barrier != nil {
		if err := f.barrier.arrive(); err != nil {
			return nil, err
		}
	}
	if f.snapshotsErr != nil {
		return nil, f.snapshotsErr
	}
	return f.snapshots[q.SiteID], nil
}

func (f *fakeGateway) GetVersionControl(ctx context.Context, webAppID int64) (*model.VersionControl, error) {
	f.mu.Lock()
	f.versionCalls = append(f.versionCalls, webAppID)
	f.mu.Unlock()
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return f.versions[webAppID], nil
}

func (f *fakeGateway) ListWebApplications(ctx context.Context, serverID int64) ([]model.WebApplication, error) {
	return f.webapps[serverID], nil
}

func (f *fakeGateway) ListDatabases(ctx context.Context, serverID int64) ([]model.Database, error) {
	return f.databases[serverID], nil
}
