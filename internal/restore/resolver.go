package restore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"restorable.io/restorectl/internal/gateway"
	"restorable.io/restorectl/internal/logging"
	"restorable.io/restorectl/internal/model"
)

// CurrentServerSuffix is appended to the label of the server the backup was taken on.
const CurrentServerSuffix = " ( Current Server )"

// ErrInvalidSite is returned for site records that cannot be resolved.
var ErrInvalidSite = errors.New("invalid site record")

// VersionControlFinder looks up the version control record of a web application.
type VersionControlFinder interface {
	GetVersionControl(ctx context.Context, webAppID int64) (*model.VersionControl, error)
}

// Resolver computes restore decisions. It holds no per-site state and is safe
// for concurrent use.
type Resolver struct {
	versions VersionControlFinder
	extra    []Rule
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules adds rules that run after the archival rule and before the atomic
// and terminal rules, in the given order.
func WithRules(rules ...Rule) Option {
	return func(r *Resolver) {
		r.extra = append(r.extra, rules...)
	}
}

// WithLogger sets the logger used for inconsistent-state warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logging.OrDiscard(l)
	}
}

// NewResolver creates a resolver reading version control records from versions.
func NewResolver(versions VersionControlFinder, opts ...Option) *Resolver {
	r := &Resolver{versions: versions, logger: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) rules() []Rule {
	rules := make([]Rule, 0, len(r.extra)+3)
	rules = append(rules, ArchivedRule)
	rules = append(rules, r.extra...)
	return append(rules, AtomicRule, TerminalRule)
}

// Resolve decides whether and where the site may be restored by callerID onto
// one of servers.
func (r *Resolver) Resolve(ctx context.Context, site model.Site, servers []model.Server, callerID int64) (Decision, error) {
	if site.ID <= 0 {
		return Decision{}, fmt.Errorf("%w: missing site id", ErrInvalidSite)
	}

	current, deployedApp := r.currentTarget(site)

	facts := Facts{Site: site}
	if deployedApp != 0 {
		if r.versions == nil {
			return Decision{}, fmt.Errorf("cannot check deployment of web application %d: no version control lookup configured", deployedApp)
		}
		vc, err := r.versions.GetVersionControl(ctx, deployedApp)
		if err != nil && !gateway.IsNotFound(err) {
			return Decision{}, fmt.Errorf("failed to get version control of web application %d: %w", deployedApp, err)
		}
		facts.VersionControl = vc
	}

	d := Decision{
		SiteID:     site.ID,
		SiteName:   site.Name,
		BackupType: site.BackupType,
		StatusCode: site.StatusCode,
		Storage:    site.Storage,
		Contain:    site.Contain,
		OwnerID:    ownerID(servers, callerID),
		Current:    current,
		Servers:    serverOptions(site, current, servers),
		CanRestore: site.CanRestore,
	}
	d = applyRules(facts, d, r.rules())
	d.Branding = Branding(site.StorageInfo)
	d.NeedsVerification = NeedsVerification(site.Storage)

	return d, nil
}

// currentTarget folds the site's associations into the current target. A later
// association of the same kind replaces an earlier one. It also returns the
// first web application association, which decides the deployment check.
func (r *Resolver) currentTarget(site model.Site) (CurrentTarget, int64) {
	var (
		c        CurrentTarget
		firstApp int64
	)
	if len(site.Backups) == 0 {
		if site.ServerID != 0 {
			// The current server is only reported together with an association.
			r.inconsistent(site, "server_without_associations", "server_id", site.ServerID)
		}
		return c, 0
	}

	c.ServerID = site.ServerID
	for _, b := range site.Backups {
		switch b.Kind {
		case model.BackupableWebApplication:
			if c.HasWebApp() {
				r.inconsistent(site, "duplicate_association", "kind", b.Kind.String(), "replaced_id", c.WebAppID)
			} else {
				firstApp = b.ID
			}
			c.WebAppID = b.ID
		case model.BackupableDatabase:
			if c.HasDatabase() {
				r.inconsistent(site, "duplicate_association", "kind", b.Kind.String(), "replaced_id", c.DatabaseID)
			}
			c.DatabaseID = b.ID
		default:
			r.inconsistent(site, "unexpected_backupable", "backupable_type", b.RawType, "backupable_id", b.ID)
		}
	}
	return c, firstApp
}

// serverOptions labels the candidate servers. They are expected to belong to
// the caller already.
func serverOptions(site model.Site, current CurrentTarget, servers []model.Server) []ServerOption {
	options := make([]ServerOption, 0, len(servers))
	seen := make(map[int64]bool, len(servers))
	for _, s := range servers {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		isCurrent := current.HasServer() && s.ID == current.ServerID
		// Local backups live on the current server and cannot be restored elsewhere.
		if site.Storage == model.StorageLocal && !isCurrent {
			continue
		}

		label := s.Name
		if isCurrent {
			label += CurrentServerSuffix
		}
		options = append(options, ServerOption{ID: s.ID, Label: label, Current: isCurrent})
	}
	return options
}

func (r *Resolver) inconsistent(site model.Site, condition string, attrs ...any) {
	args := append([]any{"site_id", site.ID, "condition", condition}, attrs...)
	r.logger.Warn("inconsistent site state", args...)
}

func ownerID(servers []model.Server, callerID int64) int64 {
	if len(servers) > 0 && servers[0].UserID != 0 {
		return servers[0].UserID
	}
	return callerID
}
