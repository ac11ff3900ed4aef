// Package gateway defines the contract of the services that hold backup
// metadata and server inventory.
package gateway

import (
	"context"
	"errors"

	"restorable.io/restorectl/internal/model"
)

var (
	// ErrNotFound is returned when a requested site, web application or server does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable is returned when a service call failed at the transport layer.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ServerQuery selects the servers a caller may restore onto.
type ServerQuery struct {
	OwnerID    int64
	OnlineOnly bool
}

// SnapshotQuery selects the snapshot catalogue of a site.
type SnapshotQuery struct {
	SiteID      int64
	GroupByType bool
}

// Gateway executes typed queries against the backup-metadata and server-inventory services.
type Gateway interface {
	// GetSite returns the site with its backup associations, or ErrNotFound.
	GetSite(ctx context.Context, siteID int64) (model.Site, error)
	// ListServers returns the servers matching the query. No match is an empty list.
	ListServers(ctx context.Context, q ServerQuery) ([]model.Server, error)
	// ListSnapshots returns the snapshot catalogue of a site.
	ListSnapshots(ctx context.Context, q SnapshotQuery) ([]model.Snapshot, error)
	// GetVersionControl returns nil, nil when the web application has no version control record.
	GetVersionControl(ctx context.Context, webAppID int64) (*model.VersionControl, error)
	// ListWebApplications returns the web applications of a server including their version control.
	ListWebApplications(ctx context.Context, serverID int64) ([]model.WebApplication, error)
	// ListDatabases returns the databases of a server.
	ListDatabases(ctx context.Context, serverID int64) ([]model.Database, error)
}

// IsNotFound reports whether err signals a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
