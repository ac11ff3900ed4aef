package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"restorable.io/restorectl/internal/report"
	"restorable.io/restorectl/internal/restore"
	"restorable.io/restorectl/internal/signing"
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func gateLine(g restore.Gate) string {
	if !g.Disabled {
		return "✓ allowed"
	}
	if g.Reason == "" {
		return "✗ disabled"
	}
	return "✗ disabled (" + g.Reason + ")"
}

func printDecision(w io.Writer, d restore.Decision, snapshots int) {
	fmt.Fprintf(w, "Site: %s (%d)\n", d.SiteName, d.SiteID)
	fmt.Fprintf(w, "Backup Type: %s\n", d.BackupType)
	fmt.Fprintf(w, "Storage: %s (%s)\n", d.Branding.Label, d.Storage)
	if d.Contain != "" {
		fmt.Fprintf(w, "Contains: %s\n", d.Contain)
	}
	fmt.Fprintf(w, "Snapshots: %d\n", snapshots)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Current Target:")
	if d.Current.IsEmpty() {
		fmt.Fprintln(w, "  (unknown)")
	}
	if d.Current.HasServer() {
		fmt.Fprintf(w, "  Server: %d\n", d.Current.ServerID)
	}
	if d.Current.HasWebApp() {
		fmt.Fprintf(w, "  Web Application: %d\n", d.Current.WebAppID)
	}
	if d.Current.HasDatabase() {
		fmt.Fprintf(w, "  Database: %d\n", d.Current.DatabaseID)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Destinations:")
	fmt.Fprintf(w, "  Current:  %s\n", gateLine(d.Here))
	fmt.Fprintf(w, "  Other:    %s\n", gateLine(d.Elsewhere))
	fmt.Fprintf(w, "  New:      %s\n", gateLine(d.New))
	fmt.Fprintf(w, "  Default:  %s\n", d.DefaultTarget)
	fmt.Fprintln(w)

	if len(d.Servers) > 0 {
		fmt.Fprintln(w, "Servers:")
		for _, s := range d.Servers {
			marker := " "
			if s.Current {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %-8d %s\n", marker, s.ID, s.Label)
		}
		fmt.Fprintln(w)
	}

	switch {
	case d.Atomic:
		fmt.Fprintln(w, "Restorable: ✗ No (web application uses atomic deployment)")
	case d.CanRestore:
		fmt.Fprintln(w, "Restorable: ✓ Yes")
	default:
		fmt.Fprintln(w, "Restorable: ✗ No")
	}
	if d.NeedsVerification {
		fmt.Fprintln(w, "Checksum verification is required before restore.")
	}
}

// saveReport signs rpt when a signing key is available and writes it to the report directory.
func (r *runtime) saveReport(w io.Writer, rpt *report.Report) (string, error) {
	if rpt.ID == "" {
		rpt.ID = uuid.New().String()
	}

	privKey, err := signing.LoadPrivateKey(r.cfg.Signing.PrivateKeyPath)
	switch {
	case err == nil:
		if err := report.Sign(rpt, privKey); err != nil {
			return "", fmt.Errorf("failed to sign report: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Warn("signing key not found, report will be unsigned",
			slog.String("path", r.cfg.Signing.PrivateKeyPath))
	default:
		return "", fmt.Errorf("failed to load signing key: %w", err)
	}

	path, err := report.WriteJSON(rpt, r.cfg.CLI.ReportDir)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(w, "Report saved: %s\n", path)
	return path, nil
}

func statusLine(ok bool) string {
	if ok {
		return "✓ Success"
	}
	return "✗ Failed"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func rule(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("-", n))
}
