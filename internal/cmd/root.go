package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the restorectl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restorectl",
		Short: "Restore eligibility and backup integrity for protected sites",
		Long: `restorectl decides where a site's backup may be restored, lists the
restore destinations, and verifies backup checksums before a restore.
Plans and verification runs can be saved as signed reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (default is $HOME/.restorectl/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	cmd.PersistentFlags().String("gateway", "", "gateway driver (http, postgres, sqlite)")
	cmd.PersistentFlags().Int64("caller", 0, "id of the user requesting the restore")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newTargetsCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
