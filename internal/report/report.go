package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/restore"
)

// ReportVersion is the current report format version.
const ReportVersion = "1"

// Kind tells what produced a report.
type Kind string

const (
	KindPlan         Kind = "plan"
	KindVerification Kind = "verification"
)

// Report records a restore plan and, for verification runs, the checksum outcome.
type Report struct {
	Version       string            `json:"version"`
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Timestamp     time.Time         `json:"timestamp"`
	SiteID        int64             `json:"site_id"`
	SiteName      string            `json:"site_name"`
	CallerID      int64             `json:"caller_id"`
	MachineID     string            `json:"machine_id"`
	Storage       string            `json:"storage"`
	SnapshotCount int               `json:"snapshot_count"`
	Decision      *restore.Decision `json:"decision,omitempty"`
	Verification  *checksum.Outcome `json:"verification,omitempty"`
	Checks        []CheckResult     `json:"checks"`
	Summary       Summary           `json:"summary"`
	SignedBy      string            `json:"signed_by,omitempty"`
	Signature     string            `json:"signature,omitempty"`
}

// Summary provides an overview of the result.
type Summary struct {
	Success          bool `json:"success"`
	TotalChecks      int  `json:"total_checks"`
	PassedChecks     int  `json:"passed_checks"`
	FailedChecks     int  `json:"failed_checks"`
	CriticalFailures int  `json:"critical_failures"`
	WarningFailures  int  `json:"warning_failures"`
	// Restorable mirrors the decision's restore flag.
	Restorable bool `json:"restorable"`
	// Verified is true only when a checksum verification ran and passed.
	Verified bool `json:"verified"`
}

// ReportBuilder helps construct reports.
type ReportBuilder struct {
	report *Report
}

// NewReportBuilder creates a new report builder.
func NewReportBuilder(kind Kind) *ReportBuilder {
	return &ReportBuilder{
		report: &Report{
			Version:   ReportVersion,
			Kind:      kind,
			Timestamp: time.Now().UTC(),
		},
	}
}

func (b *ReportBuilder) WithID(id string) *ReportBuilder {
	b.report.ID = id
	return b
}

func (b *ReportBuilder) WithCaller(callerID int64) *ReportBuilder {
	b.report.CallerID = callerID
	return b
}

func (b *ReportBuilder) WithMachineID(machineID string) *ReportBuilder {
	b.report.MachineID = machineID
	return b
}

func (b *ReportBuilder) WithDecision(d restore.Decision) *ReportBuilder {
	b.report.Decision = &d
	b.report.SiteID = d.SiteID
	b.report.SiteName = d.SiteName
	b.report.Storage = d.Storage
	return b
}

func (b *ReportBuilder) WithSnapshotCount(n int) *ReportBuilder {
	b.report.SnapshotCount = n
	return b
}

func (b *ReportBuilder) WithVerification(o *checksum.Outcome) *ReportBuilder {
	b.report.Verification = o
	return b
}

func (b *ReportBuilder) WithChecks(checks []CheckResult) *ReportBuilder {
	b.report.Checks = checks
	return b
}

// Build runs the default checks when none were set and computes the summary.
func (b *ReportBuilder) Build() *Report {
	if b.report.Checks == nil && b.report.Decision != nil {
		b.report.Checks = RunChecks(DefaultCheckers(), Subject{
			Decision:      *b.report.Decision,
			SnapshotCount: b.report.SnapshotCount,
			Verification:  b.report.Verification,
		})
	}
	b.computeSummary()
	return b.report
}

func (b *ReportBuilder) computeSummary() {
	var passed, failed, critical, warning int
	for _, c := range b.report.Checks {
		if c.Passed {
			passed++
			continue
		}
		failed++
		switch c.Level {
		case LevelCritical:
			critical++
		case LevelWarning:
			warning++
		}
	}

	b.report.Summary = Summary{
		Success:          critical == 0,
		TotalChecks:      len(b.report.Checks),
		PassedChecks:     passed,
		FailedChecks:     failed,
		CriticalFailures: critical,
		WarningFailures:  warning,
	}
	if b.report.Decision != nil {
		b.report.Summary.Restorable = b.report.Decision.CanRestore
	}
	if v := b.report.Verification; v != nil {
		b.report.Summary.Verified = v.Success
	}
}

// WriteJSON writes the report to a JSON file named after its timestamp and id.
func WriteJSON(report *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", report.Timestamp.Format("20060102_150405"), report.ID)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// LoadReport loads a report from a JSON file.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListReports returns all reports in the given directory, newest first.
// Unreadable files are skipped.
func ListReports(dir string) ([]*ReportSummary, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var reports []*ReportSummary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		report, err := LoadReport(path)
		if err != nil {
			continue
		}

		reports = append(reports, &ReportSummary{
			ID:        report.ID,
			Kind:      report.Kind,
			Timestamp: report.Timestamp,
			SiteID:    report.SiteID,
			Success:   report.Summary.Success,
			Signed:    report.Signature != "",
			Path:      path,
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})

	return reports, nil
}

// ReportSummary is a lightweight summary for listing reports.
type ReportSummary struct {
	ID        string
	Kind      Kind
	Timestamp time.Time
	SiteID    int64
	Success   bool
	Signed    bool
	Path      string
}
