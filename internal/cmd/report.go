package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/report"
	"restorable.io/restorectl/internal/signing"
)

// ErrInvalidSignature is returned by report verify when the signature does not match.
var ErrInvalidSignature = errors.New("report signature is invalid")

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Manage plan and verification reports",
		Long:  `List, view, and verify saved reports.`,
	}
	cmd.AddCommand(newReportListCmd())
	cmd.AddCommand(newReportShowCmd())
	cmd.AddCommand(newReportVerifyCmd())
	return cmd
}

func newReportListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			reports, err := report.ListReports(rt.cfg.CLI.ReportDir)
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No reports found.")
				return nil
			}

			fmt.Fprintf(out, "%-36s  %-20s  %-12s  %-8s  %s\n", "ID", "Timestamp", "Kind", "Site", "Status")
			rule(out, 100)

			for _, r := range reports {
				fmt.Fprintf(out, "%-36s  %-20s  %-12s  %-8d  %s\n",
					r.ID,
					r.Timestamp.Format("2006-01-02 15:04:05"),
					r.Kind,
					r.SiteID,
					statusLine(r.Success),
				)
			}
			return nil
		},
	}
}

func newReportShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rpt, path, err := findReport(rt.cfg.CLI.ReportDir, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			showJSON, _ := cmd.Flags().GetBool("json")
			if showJSON {
				return writeJSON(out, rpt)
			}

			fmt.Fprintf(out, "Report: %s\n", rpt.ID)
			fmt.Fprintf(out, "Kind: %s\n", rpt.Kind)
			fmt.Fprintf(out, "Path: %s\n", path)
			fmt.Fprintf(out, "Timestamp: %s\n", rpt.Timestamp.Format("2006-01-02 15:04:05 UTC"))
			fmt.Fprintf(out, "Site: %s (%d)\n", rpt.SiteName, rpt.SiteID)
			fmt.Fprintf(out, "Caller: %d\n", rpt.CallerID)
			fmt.Fprintf(out, "Machine: %s\n", rpt.MachineID)
			fmt.Fprintf(out, "Storage: %s\n", rpt.Storage)
			fmt.Fprintf(out, "Snapshots: %d\n", rpt.SnapshotCount)
			fmt.Fprintln(out)

			if v := rpt.Verification; v != nil {
				fmt.Fprintln(out, "Verification:")
				fmt.Fprintf(out, "  Snapshot: %s\n", v.SnapshotID)
				fmt.Fprintf(out, "  Backend: %s\n", v.Backend)
				if v.ServerID != 0 {
					fmt.Fprintf(out, "  Server: %d\n", v.ServerID)
				}
				fmt.Fprintf(out, "  Result: %s\n", statusLine(v.Success))
				if v.Message != "" {
					fmt.Fprintf(out, "  Message: %s\n", v.Message)
				}
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, "Summary:")
			fmt.Fprintf(out, "  Status: %s\n", statusLine(rpt.Summary.Success))
			fmt.Fprintf(out, "  Checks: %d/%d passed\n", rpt.Summary.PassedChecks, rpt.Summary.TotalChecks)
			if rpt.Summary.CriticalFailures > 0 {
				fmt.Fprintf(out, "  Critical Failures: %d\n", rpt.Summary.CriticalFailures)
			}
			if rpt.Summary.WarningFailures > 0 {
				fmt.Fprintf(out, "  Warnings: %d\n", rpt.Summary.WarningFailures)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Checks:")
			for _, c := range rpt.Checks {
				status := "✓"
				if !c.Passed {
					status = "✗"
				}
				fmt.Fprintf(out, "  %s [%s] %s: %s\n", status, c.Level, c.Name, c.Message)
			}
			fmt.Fprintln(out)

			if rpt.Signature != "" {
				fmt.Fprintf(out, "Signature: %s (key %s)\n", truncate(rpt.Signature, 32), rpt.SignedBy)
			} else {
				fmt.Fprintln(out, "Signature: (not signed)")
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Output report as JSON")
	return cmd
}

func newReportVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Verify a report's signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rpt, _, err := findReport(rt.cfg.CLI.ReportDir, args[0])
			if err != nil {
				return err
			}

			pubKey, err := signing.LoadPublicKey(signing.PublicKeyPath(rt.cfg.Signing.PrivateKeyPath))
			if err != nil {
				return fmt.Errorf("failed to load public key: %w", err)
			}

			valid, err := report.Verify(rpt, pubKey)
			if err != nil {
				return fmt.Errorf("signature verification failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if !valid {
				fmt.Fprintln(out, "✗ Signature is INVALID")
				return ErrInvalidSignature
			}
			fmt.Fprintln(out, "✓ Signature is valid")
			return nil
		},
	}
}

// findReport resolves id by exact id, unique id prefix, or file name.
func findReport(dir string, id string) (*report.Report, string, error) {
	reports, err := report.ListReports(dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list reports: %w", err)
	}

	for _, r := range reports {
		if r.ID == id {
			rpt, err := report.LoadReport(r.Path)
			return rpt, r.Path, err
		}
	}

	var matches []*report.ReportSummary
	for _, r := range reports {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}

	if len(matches) == 0 {
		pattern := filepath.Join(dir, "*"+id+"*.json")
		files, _ := filepath.Glob(pattern)
		if len(files) == 1 {
			rpt, err := report.LoadReport(files[0])
			return rpt, files[0], err
		}
		return nil, "", fmt.Errorf("report not found: %s", id)
	}

	if len(matches) > 1 {
		return nil, "", fmt.Errorf("ambiguous report ID %q matches %d reports", id, len(matches))
	}

	rpt, err := report.LoadReport(matches[0].Path)
	return rpt, matches[0].Path, err
}
