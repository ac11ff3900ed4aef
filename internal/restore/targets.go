package restore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"restorable.io/restorectl/internal/model"
)

// SetupLister lists what exists on a destination server.
type SetupLister interface {
	ListWebApplications(ctx context.Context, serverID int64) ([]model.WebApplication, error)
	ListDatabases(ctx context.Context, serverID int64) ([]model.Database, error)
}

// NamedOption is a selectable entity on a destination server.
type NamedOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TargetSetup lists the web applications and databases a backup can be restored into.
type TargetSetup struct {
	ServerID        int64         `json:"server_id"`
	WebApplications []NamedOption `json:"web_applications"`
	Databases       []NamedOption `json:"databases"`
}

// ListTargets returns the restore setup of serverID. Web applications deployed
// through atomic releases are excluded, except the current web application.
func ListTargets(ctx context.Context, lister SetupLister, serverID, currentWebAppID int64) (TargetSetup, error) {
	var (
		webapps   []model.WebApplication
		databases []model.Database
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := lister.ListWebApplications(gctx, serverID)
		if err != nil {
			return fmt.Errorf("failed to list web applications of server %d: %w", serverID, err)
		}
		webapps = w
		return nil
	})
	g.Go(func() error {
		d, err := lister.ListDatabases(gctx, serverID)
		if err != nil {
			return fmt.Errorf("failed to list databases of server %d: %w", serverID, err)
		}
		databases = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return TargetSetup{}, err
	}

	setup := TargetSetup{
		ServerID:        serverID,
		WebApplications: []NamedOption{},
		Databases:       []NamedOption{},
	}
	for _, w := range webapps {
		atomic := w.VersionControl != nil && w.VersionControl.Atomic
		if atomic && w.ID != currentWebAppID {
			continue
		}
		setup.WebApplications = append(setup.WebApplications, NamedOption{ID: w.ID, Name: w.Name})
	}
	for _, d := range databases {
		setup.Databases = append(setup.Databases, NamedOption{ID: d.ID, Name: d.Name})
	}
	return setup, nil
}
