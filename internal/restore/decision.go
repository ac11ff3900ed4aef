package restore

// DefaultTarget is the restore destination preselected for the user.
type DefaultTarget string

const (
	TargetCurrent DefaultTarget = "current"
	TargetOther   DefaultTarget = "other"
	TargetNew     DefaultTarget = "new"
)

// CurrentTarget is where the site's backup was taken from. Zero ids mean unknown.
type CurrentTarget struct {
	ServerID   int64 `json:"server,omitempty"`
	WebAppID   int64 `json:"webapp,omitempty"`
	DatabaseID int64 `json:"database,omitempty"`
}

func (c CurrentTarget) HasServer() bool   { return c.ServerID != 0 }
func (c CurrentTarget) HasWebApp() bool   { return c.WebAppID != 0 }
func (c CurrentTarget) HasDatabase() bool { return c.DatabaseID != 0 }

// IsEmpty reports whether no association contributed to the target.
func (c CurrentTarget) IsEmpty() bool {
	return !c.HasServer() && !c.HasWebApp() && !c.HasDatabase()
}

// ServerOption is a server the site may be restored onto.
type ServerOption struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Current bool   `json:"current"`
}

// Gate is the state of one restore destination.
type Gate struct {
	Disabled bool   `json:"disabled"`
	Reason   string `json:"reason,omitempty"`
}

// StorageBranding is the icon and label shown for the storage provider.
type StorageBranding struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Decision is the outcome of resolving a site's restore eligibility.
type Decision struct {
	SiteID     int64  `json:"site_id"`
	SiteName   string `json:"site_name"`
	BackupType string `json:"backup_type"`
	StatusCode int    `json:"status_code"`
	Storage    string `json:"storage"`
	Contain    string `json:"contain"`
	OwnerID    int64  `json:"owner_id"`

	Current CurrentTarget  `json:"current"`
	Servers []ServerOption `json:"servers"`

	CanRestore    bool          `json:"can_restore"`
	Here          Gate          `json:"here"`
	Elsewhere     Gate          `json:"elsewhere"`
	New           Gate          `json:"new"`
	DefaultTarget DefaultTarget `json:"default_target"`
	Atomic        bool          `json:"atomic"`

	Branding          StorageBranding `json:"branding"`
	NeedsVerification bool            `json:"needs_verification"`
}

func (d Decision) CanRestoreHere() bool      { return !d.Here.Disabled }
func (d Decision) CanRestoreElsewhere() bool { return !d.Elsewhere.Disabled }
func (d Decision) CanRestoreNew() bool       { return !d.New.Disabled }

// AllDisabled reports whether every destination is disabled.
func (d Decision) AllDisabled() bool {
	return d.Here.Disabled && d.Elsewhere.Disabled && d.New.Disabled
}

// CurrentServer returns the current server option when it is in the list.
func (d Decision) CurrentServer() (ServerOption, bool) {
	for _, s := range d.Servers {
		if s.Current {
			return s, true
		}
	}
	return ServerOption{}, false
}
