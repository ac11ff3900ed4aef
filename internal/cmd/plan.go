package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/model"
	"restorable.io/restorectl/internal/report"
	"restorable.io/restorectl/internal/restore"
)

type planOutput struct {
	Decision  restore.Decision      `json:"decision"`
	Snapshots []model.SnapshotGroup `json:"snapshots"`
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <site-id>",
		Short: "Resolve where a site's backup may be restored",
		Long: `Plan gathers the site, the caller's online servers and the snapshot
catalogue, then resolves the restore decision: the current target, the
servers offered, which destinations are allowed and which is preselected.`,
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

			plan, err := planner.Plan(ctx, restore.Query{SiteID: siteID, CallerID: rt.cfg.Caller.ID})
			if err != nil {
				return fmt.Errorf("failed to plan restore of site %d: %w", siteID, err)
			}

			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				groups := plan.Inputs.SnapshotGroups()
				if groups == nil {
					groups = []model.SnapshotGroup{}
				}
				if err := writeJSON(out, planOutput{Decision: plan.Decision, Snapshots: groups}); err != nil {
					return err
				}
			} else {
				printDecision(out, plan.Decision, len(plan.Inputs.Snapshots))
			}

			save, _ := cmd.Flags().GetBool("save")
			if !save {
				return nil
			}
			rpt := report.NewReportBuilder(report.KindPlan).
				WithCaller(rt.cfg.Caller.ID).
				WithMachineID(machineID()).
				WithDecision(plan.Decision).
				WithSnapshotCount(len(plan.Inputs.Snapshots)).
				Build()
			_, err = rt.saveReport(cmd.ErrOrStderr(), rpt)
			return err
		},
	}

	cmd.Flags().Bool("json", false, "Output the decision as JSON")
	cmd.Flags().Bool("save", false, "Save the plan as a signed report")
	return cmd
}
