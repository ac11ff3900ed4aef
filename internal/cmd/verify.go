package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/checksum"
	"restorable.io/restorectl/internal/model"
	"restorable.io/restorectl/internal/report"
	"restorable.io/restorectl/internal/restore"
)

// ErrNotRestorable is returned by verify when the site cannot be restored and --force is not set.
var ErrNotRestorable = errors.New("site is not restorable")

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <site-id>",
		Short: "Verify the checksum of a backup before restore",
		Long: `Verify resolves the site's restore decision, then asks the verification
backend responsible for the site's storage to check the snapshot's checksum.
Local backups are checked by the server that holds them; remote backups by
the backup service. The newest snapshot is verified unless --snapshot is set.

A failed check exits with status 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID(args[0], "site")
			if err != nil {
				return err
			}

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			planner, err := rt.planner(ctx)
			if err != nil {
				return err
			}
			dispatcher, err := rt.dispatcher()
			if err != nil {
				return err
			}

			plan, err := planner.Plan(ctx, restore.Query{SiteID: siteID, CallerID: rt.cfg.Caller.ID})
			if err != nil {
				return fmt.Errorf("failed to plan restore of site %d: %w", siteID, err)
			}
			decision := plan.Decision

			force, _ := cmd.Flags().GetBool("force")
			if !decision.CanRestore && !force {
				return fmt.Errorf("%w: site %d (use --force to verify anyway)", ErrNotRestorable, siteID)
			}

			snapshotID, _ := cmd.Flags().GetString("snapshot")
			snapshot, err := pickSnapshot(plan.Inputs.Snapshots, snapshotID)
			if err != nil {
				return err
			}

			serverID, _ := cmd.Flags().GetInt64("server")
			if serverID == 0 {
				serverID = decision.Current.ServerID
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Verifying backup %s of site %s (%d) on %s...\n",
				snapshot.ID, decision.SiteName, decision.SiteID, decision.Storage)

			outcome, verifyErr := dispatcher.Verify(ctx, []model.Snapshot{snapshot}, decision.Storage, serverID)
			if verifyErr != nil && !errors.Is(verifyErr, checksum.ErrIntegrityFailure) {
				return verifyErr
			}

			fmt.Fprintf(out, "Backend: %s\n", outcome.Backend)
			fmt.Fprintf(out, "Result: %s\n", statusLine(outcome.Success))
			if outcome.Message != "" {
				fmt.Fprintf(out, "Message: %s\n", outcome.Message)
			}

			noReport, _ := cmd.Flags().GetBool("no-report")
			if !noReport {
				rpt := report.NewReportBuilder(report.KindVerification).
					WithCaller(rt.cfg.Caller.ID).
					WithMachineID(machineID()).
					WithDecision(decision).
					WithSnapshotCount(len(plan.Inputs.Snapshots)).
					WithVerification(&outcome).
					Build()
				if _, err := rt.saveReport(out, rpt); err != nil {
					return err
				}
			}

			return verifyErr
		},
	}

	cmd.Flags().String("snapshot", "", "Snapshot id to verify (default: newest)")
	cmd.Flags().Int64("server", 0, "Server to annotate the snapshot with (default: current server)")
	cmd.Flags().Bool("force", false, "Verify even when the site is not restorable")
	cmd.Flags().Bool("no-report", false, "Do not write a verification report")
	return cmd
}

// pickSnapshot returns the snapshot with id, or the newest snapshot when id is empty.
func pickSnapshot(snapshots []model.Snapshot, id string) (model.Snapshot, error) {
	if id != "" {
		s, ok := model.FindSnapshot(snapshots, id)
		if !ok {
			return model.Snapshot{}, fmt.Errorf("snapshot not found: %s", id)
		}
		return s, nil
	}
	if len(snapshots) == 0 {
		return model.Snapshot{}, checksum.ErrNoSnapshot
	}
	newest := snapshots[0]
	for _, s := range snapshots[1:] {
		if s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	return newest, nil
}
