package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"restorable.io/restorectl/internal/restore"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets <server-id>",
		Short: "List the web applications and databases a backup can be restored into",
		Long: `Targets lists the restore setup of a destination server. Web applications
deployed through atomic releases are left out unless they are the current
web application given with --current-webapp.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverID, err := parseID(args[0], "server")
			if err != nil {
				return err
			}
			currentWebApp, _ := cmd.Flags().GetInt64("current-webapp")

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			gw, err := rt.gateway(ctx)
			if err != nil {
				return err
			}

			setup, err := restore.ListTargets(ctx, gw, serverID, currentWebApp)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return writeJSON(out, setup)
			}

			fmt.Fprintf(out, "Server: %d\n\n", setup.ServerID)
			fmt.Fprintln(out, "Web Applications:")
			if len(setup.WebApplications) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, w := range setup.WebApplications {
				fmt.Fprintf(out, "  %-8d %s\n", w.ID, w.Name)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Databases:")
			if len(setup.Databases) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, d := range setup.Databases {
				fmt.Fprintf(out, "  %-8d %s\n", d.ID, d.Name)
			}
			return nil
		},
	}

	cmd.Flags().Int64("current-webapp", 0, "Web application the backup was taken from")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}
