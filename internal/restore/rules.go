package restore

import "restorable.io/restorectl/internal/model"

// ArchivedReason is shown on the current-target option of an archived site.
const ArchivedReason = "Can not restore to the same target because backup has been archived"

// Facts are the read-only inputs rules decide on.
type Facts struct {
	Site model.Site
	// VersionControl of the first web application association, nil when absent.
	VersionControl *model.VersionControl
}

// Rule refines the accumulating decision and returns it.
type Rule func(f Facts, d Decision) Decision

// ArchivedRule disables restoring onto the current target of an archived site
// and preselects another target instead.
func ArchivedRule(f Facts, d Decision) Decision {
	if !f.Site.Archived {
		d.DefaultTarget = TargetCurrent
		return d
	}
	d.Here = Gate{Disabled: true, Reason: ArchivedReason}
	d.DefaultTarget = TargetOther
	return d
}

// AtomicRule blocks restore of web applications deployed through atomic releases.
func AtomicRule(f Facts, d Decision) Decision {
	if f.VersionControl != nil && f.VersionControl.Atomic {
		d.CanRestore = false
		d.Atomic = true
	}
	return d
}

// TerminalRule makes the site non-restorable once every destination is disabled.
func TerminalRule(_ Facts, d Decision) Decision {
	if d.AllDisabled() {
		d.CanRestore = false
	}
	return d
}

// BackupTypeRestriction disables destinations for one backup type.
type BackupTypeRestriction struct {
	BackupType   string
	DisableOther bool
	DisableNew   bool
	OtherReason  string
	NewReason    string
}

// RestrictBackupType returns a rule applying r to sites of the matching backup type.
func RestrictBackupType(r BackupTypeRestriction) Rule {
	return func(f Facts, d Decision) Decision {
		if f.Site.BackupType != r.BackupType {
			return d
		}
		if r.DisableOther {
			d.Elsewhere = Gate{Disabled: true, Reason: r.OtherReason}
		}
		if r.DisableNew {
			d.New = Gate{Disabled: true, Reason: r.NewReason}
		}
		return d
	}
}

// FallbackToNewRule preselects a new site when neither the current nor another
// existing target is available.
func FallbackToNewRule(_ Facts, d Decision) Decision {
	if d.Here.Disabled && d.Elsewhere.Disabled && !d.New.Disabled {
		d.DefaultTarget = TargetNew
	}
	return d
}

func applyRules(f Facts, d Decision, rules []Rule) Decision {
	for _, rule := range rules {
		d = rule(f, d)
	}
	return d
}
