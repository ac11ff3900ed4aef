package catalog

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/model"
)

func (s *Store) GetSite(ctx context.Context, siteID int64) (model.Site, error) {
	var row SiteRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", siteID).Limit(1).Scan(ctx); err != nil {
		return model.Site{}, mapError(err, fmt.Sprintf("site %d", siteID))
	}

	var backups []SiteBackupRow
	err := s.db.NewSelect().Model(&backups).Where("site_id = ?", siteID).Order("id ASC").Scan(ctx)
	if err != nil {
		return model.Site{}, mapError(err, fmt.Sprintf("backups of site %d", siteID))
	}
	return siteRowToModel(row, backups), nil
}

func (s *Store) ListServers(ctx context.Context, q gateway.ServerQuery) ([]model.Server, error) {
	var rows []ServerRow
	query := s.db.NewSelect().Model(&rows).Where("user_id = ?", q.OwnerID)
	if q.OnlineOnly {
		query = query.Where("online = ?", true)
	}
	if err := query.Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError(err, "servers")
	}

	servers := make([]model.Server, 0, len(rows))
	for _, r := range rows {
		servers = append(servers, model.Server{ID: r.ID, Name: r.Name, Online: r.Online, UserID: r.UserID})
	}
	return servers, nil
}

// ListSnapshots returns snapshots ordered by type, newest first within a type.
func (s *Store) ListSnapshots(ctx context.Context, q gateway.SnapshotQuery) ([]model.Snapshot, error) {
	var rows []SnapshotRow
	query := s.db.NewSelect().Model(&rows).Where("site_id = ?", q.SiteID)
	if q.GroupByType {
		query = query.Order("type ASC")
	}
	if err := query.Order("created_at DESC", "id ASC").Scan(ctx); err != nil {
		return nil, mapError(err, fmt.Sprintf("snapshots of site %d", q.SiteID))
	}

	snapshots := make([]model.Snapshot, 0, len(rows))
	for _, r := range rows {
		snapshots = append(snapshots, snapshotRowToModel(r))
	}
	return snapshots, nil
}

func (s *Store) GetVersionControl(ctx context.Context, webAppID int64) (*model.VersionControl, error) {
	var row VersionControlRow
	err := s.db.NewSelect().Model(&row).Where("web_application_id = ?", webAppID).Limit(1).Scan(ctx)
	if err != nil {
		err = mapError(err, fmt.Sprintf("version control of web application %d", webAppID))
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &model.VersionControl{WebApplicationID: row.WebApplicationID, Atomic: row.Atomic}, nil
}

func (s *Store) ListWebApplications(ctx context.Context, serverID int64) ([]model.WebApplication, error) {
	var rows []WebApplicationRow
	if err := s.db.NewSelect().Model(&rows).Where("server_id = ?", serverID).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError(err, fmt.Sprintf("web applications of server %d", serverID))
	}

	apps := make([]model.WebApplication, 0, len(rows))
	if len(rows) == 0 {
		return apps, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	var vcs []VersionControlRow
	if err := s.db.NewSelect().Model(&vcs).Where("web_application_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, mapError(err, fmt.Sprintf("version controls of server %d", serverID))
	}
	byApp := make(map[int64]*model.VersionControl, len(vcs))
	for _, vc := range vcs {
		byApp[vc.WebApplicationID] = &model.VersionControl{WebApplicationID: vc.WebApplicationID, Atomic: vc.Atomic}
	}

	for _, r := range rows {
		apps = append(apps, model.WebApplication{ID: r.ID, ServerID: r.ServerID, Name: r.Name, VersionControl: byApp[r.ID]})
	}
	return apps, nil
}

func (s *Store) ListDatabases(ctx context.Context, serverID int64) ([]model.Database, error) {
	var rows []DatabaseRow
	if err := s.db.NewSelect().Model(&rows).Where("server_id = ?", serverID).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError(err, fmt.Sprintf("databases of server %d", serverID))
	}

	dbs := make([]model.Database, 0, len(rows))
	for _, r := range rows {
		dbs = append(dbs, model.Database{ID: r.ID, ServerID: r.ServerID, Name: r.Name})
	}
	return dbs, nil
}
