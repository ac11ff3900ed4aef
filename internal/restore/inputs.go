package restore

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/logging"
	"restorable.io/restorectl/internal/model"
)

// Query identifies the site to resolve and who is asking.
type Query struct {
	SiteID   int64
	CallerID int64
}

// Inputs are the records a restore decision is computed from.
type Inputs struct {
	Site      model.Site
	Servers   []model.Server
	Snapshots []model.Snapshot
}

// SnapshotGroups returns the snapshot catalogue grouped by type.
func (in Inputs) SnapshotGroups() []model.SnapshotGroup {
	return model.GroupSnapshots(in.Snapshots)
}

// InputBuilder gathers the inputs of a restore decision from the gateway.
type InputBuilder struct {
	gw     gateway.Gateway
	logger *slog.Logger
}

// NewInputBuilder creates an InputBuilder.
func NewInputBuilder(gw gateway.Gateway, logger *slog.Logger) *InputBuilder {
	return &InputBuilder{gw: gw, logger: logging.OrDiscard(logger)}
}

// Build fetches the snapshot catalogue, the site and the caller's online
// servers concurrently. The first failure cancels the other lookups. A
// missing site is an error; missing snapshots or servers are empty lists.
func (b *InputBuilder) Build(ctx context.Context, q Query) (Inputs, error) {
	var (
		site      model.Site
		servers   []model.Server
		snapshots []model.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := b.gw.ListSnapshots(gctx, gateway.SnapshotQuery{SiteID: q.SiteID, GroupByType: true})
		if gateway.IsNotFound(err) {
			b.logger.Debug("no snapshots yet", "site_id", q.SiteID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list snapshots of site %d: %w", q.SiteID, err)
		}
		snapshots = s
		return nil
	})

	g.Go(func() error {
		s, err := b.gw.GetSite(gctx, q.SiteID)
		if err != nil {
			return fmt.Errorf("failed to get site %d: %w", q.SiteID, err)
		}
		site = s
		return nil
	})

	g.Go(func() error {
		s, err := b.gw.ListServers(gctx, gateway.ServerQuery{OwnerID: q.CallerID, OnlineOnly: true})
		if gateway.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list servers of user %d: %w", q.CallerID, err)
		}
		servers = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}

	b.logger.Debug("restore inputs gathered",
		"site_id", q.SiteID, "servers", len(servers), "snapshots", len(snapshots))
	return Inputs{Site: site, Servers: servers, Snapshots: snapshots}, nil
}
