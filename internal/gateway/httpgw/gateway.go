package httpgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/model"
)

type resourceQuery struct {
	Where    map[string]any `json:"where"`
	Includes any            `json:"includes,omitempty"`
}

type snapshotSelection struct {
	WithType bool `json:"withType"`
	Group    bool `json:"group"`
}

func (c *Client) GetSite(ctx context.Context, siteID int64) (model.Site, error) {
	var w siteWire
	err := c.call(ctx, ServiceBackup, http.MethodGet, "/internal/resources/find/Site/first", resourceQuery{
		Where:    map[string]any{"id": siteID},
		Includes: "backups",
	}, &w)
	if err != nil {
		return model.Site{}, err
	}
	return w.toModel(), nil
}

func (c *Client) ListServers(ctx context.Context, q gateway.ServerQuery) ([]model.Server, error) {
	where := map[string]any{"user_id": q.OwnerID}
	if q.OnlineOnly {
		where["online"] = true
	}

	var ws []serverWire
	if err := c.listCall(ctx, ServiceServer, "/internal/resources/find/Server/get", resourceQuery{Where: where}, &ws); err != nil {
		return nil, err
	}

	servers := make([]model.Server, 0, len(ws))
	for _, w := range ws {
		servers = append(servers, w.toModel())
	}
	return servers, nil
}

func (c *Client) ListSnapshots(ctx context.Context, q gateway.SnapshotQuery) ([]model.Snapshot, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/internal/selection/%d/snapshots", q.SiteID)
	err := c.listCall(ctx, ServiceBackup, path, snapshotSelection{WithType: true, Group: q.GroupByType}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeSnapshots(raw, q.SiteID)
}

func (c *Client) GetVersionControl(ctx context.Context, webAppID int64) (*model.VersionControl, error) {
	var w versionControlWire
	err := c.call(ctx, ServiceServer, http.MethodGet, "/internal/resources/find/VersionControl/first", resourceQuery{
		Where:    map[string]any{"web_application_id": webAppID},
		Includes: "atomicProject",
	}, &w)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	vc := w.toModel()
	if vc.WebApplicationID == 0 {
		vc.WebApplicationID = webAppID
	}
	return vc, nil
}

func (c *Client) ListWebApplications(ctx context.Context, serverID int64) ([]model.WebApplication, error) {
	var ws []webAppWire
	err := c.listCall(ctx, ServiceServer, "/internal/resources/find/WebApplication/get", resourceQuery{
		Where:    map[string]any{"server_id": serverID},
		Includes: []string{"versionControl"},
	}, &ws)
	if err != nil {
		return nil, err
	}

	apps := make([]model.WebApplication, 0, len(ws))
	for _, w := range ws {
		apps = append(apps, w.toModel())
	}
	return apps, nil
}

func (c *Client) ListDatabases(ctx context.Context, serverID int64) ([]model.Database, error) {
	var ws []databaseWire
	err := c.listCall(ctx, ServiceServer, "/internal/resources/find/Database/get", resourceQuery{
		Where: map[string]any{"server_id": serverID},
	}, &ws)
	if err != nil {
		return nil, err
	}

	dbs := make([]model.Database, 0, len(ws))
	for _, w := range ws {
		dbs = append(dbs, w.toModel())
	}
	return dbs, nil
}
