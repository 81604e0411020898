package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded run traces",
}

var runsListJSON bool

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List run traces, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		traces, err := a.runner().Traces().List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsListJSON {
			return printJSON(out, traces)
		}
		if len(traces) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		for _, t := range traces {
			fmt.Fprintf(out, "%s %s %s -> %s %s\n",
				idStyle.Render(t.RunID),
				labelStyle.Render(t.StartedAt.Local().Format(time.DateTime)),
				t.EntryAgentID,
				t.Routing.TargetAgentID,
				labelStyle.Render(fmt.Sprintf("exit %d", t.Execution.ExitCode)),
			)
		}
		return nil
	}),
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run trace",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		trace, err := a.runner().Traces().Read(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), trace)
	}),
}

func init() {
	runsListCmd.Flags().BoolVar(&runsListJSON, "json", false, "Print traces as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}
