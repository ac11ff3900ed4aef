package report

import (
	"fmt"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/restore"
)

// Level indicates the severity of a check.
type Level string

const (
	LevelCritical Level = "critical" // Failures are blocking
	LevelWarning  Level = "warning"  // Failures are concerning but not blocking
	LevelInfo     Level = "info"     // Informational only
)

// CheckResult represents the outcome of one check over a restore plan.
type CheckResult struct {
	Name    string `json:"name"`
	Level   Level  `json:"level"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Subject is what checks inspect.
type Subject struct {
	Decision      restore.Decision
	SnapshotCount int
	// Verification is nil when no checksum verification ran.
	Verification *checksum.Outcome
}

// Checker evaluates one aspect of a restore plan.
type Checker interface {
	Check(s Subject) CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(s Subject) CheckResult

func (f CheckerFunc) Check(s Subject) CheckResult { return f(s) }

// DefaultCheckers returns the checks written into every report.
func DefaultCheckers() []Checker {
	return []Checker{
		CheckerFunc(restoreAllowed),
		CheckerFunc(snapshotsAvailable),
		CheckerFunc(currentTargetAvailable),
		CheckerFunc(notAtomic),
		CheckerFunc(destinationsAvailable),
		CheckerFunc(integrity),
	}
}

// RunChecks executes the checkers in order.
func RunChecks(checkers []Checker, s Subject) []CheckResult {
	results := make([]CheckResult, 0, len(checkers))
	for _, c := range checkers {
		results = append(results, c.Check(s))
	}
	return results
}

// HasCriticalFailure returns true if any critical check failed.
func HasCriticalFailure(results []CheckResult) bool {
	for _, r := range results {
		if r.Level == LevelCritical && !r.Passed {
			return true
		}
	}
	return false
}

func restoreAllowed(s Subject) CheckResult {
	r := CheckResult{Name: "restore_allowed", Level: LevelCritical, Passed: s.Decision.CanRestore}
	switch {
	case r.Passed:
		r.Message = "Site can be restored"
	case s.Decision.Atomic:
		r.Message = "Restore is blocked by atomic deployment"
	default:
		r.Message = "Every restore destination is disabled"
	}
	return r
}

func snapshotsAvailable(s Subject) CheckResult {
	return CheckResult{
		Name:    "snapshots_available",
		Level:   LevelCritical,
		Passed:  s.SnapshotCount > 0,
		Message: fmt.Sprintf("%d snapshot(s) in catalogue", s.SnapshotCount),
	}
}

func currentTargetAvailable(s Subject) CheckResult {
	r := CheckResult{Name: "current_target", Level: LevelWarning, Passed: !s.Decision.Here.Disabled}
	if r.Passed {
		r.Message = "Restore to the original target is allowed"
	} else {
		r.Message = s.Decision.Here.Reason
	}
	return r
}

func notAtomic(s Subject) CheckResult {
	r := CheckResult{Name: "atomic_deployment", Level: LevelWarning, Passed: !s.Decision.Atomic}
	if r.Passed {
		r.Message = "Web application is not deployed atomically"
	} else {
		r.Message = "Web application uses atomic deployment"
	}
	return r
}

func destinationsAvailable(s Subject) CheckResult {
	n := len(s.Decision.Servers)
	return CheckResult{
		Name:    "destination_servers",
		Level:   LevelWarning,
		Passed:  n > 0,
		Message: fmt.Sprintf("%d online server(s) available", n),
	}
}

func integrity(s Subject) CheckResult {
	r := CheckResult{Name: "integrity", Level: LevelCritical}
	switch {
	case s.Verification != nil:
		r.Passed = s.Verification.Success
		r.Message = fmt.Sprintf("Snapshot %s checked by %s backend", s.Verification.SnapshotID, s.Verification.Backend)
		if !r.Passed && s.Verification.Message != "" {
			r.Message += ": " + s.Verification.Message
		}
	case s.Decision.NeedsVerification:
		r.Level = LevelInfo
		r.Message = fmt.Sprintf("Storage %s requires checksum verification before restore", s.Decision.Storage)
	default:
		r.Level = LevelInfo
		r.Passed = true
		r.Message = fmt.Sprintf("Storage %s does not require checksum verification", s.Decision.Storage)
	}
	return r
}
