package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/orchestrator"
	"github.com/ShayCichocki/herd/pkg/models"
)

var (
	routeAs   string
	routeJSON bool
)

var routeCmd = &cobra.Command{
	Use:   "route <message...>",
	Short: "Show where a message would be delegated without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		entry := entryAgent(a, routeAs)
		decision, err := a.runner().Route(cmd.Context(), entry, strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if routeJSON {
			return printJSON(out, decision)
		}
		printDecision(out, decision)
		return nil
	}),
}

var (
	runAs           string
	runSession      string
	runCwd          string
	runSystemPrompt string
	runJSON         bool
)

var runCmd = &cobra.Command{
	Use:   "run <message...>",
	Short: "Route a message and execute the chosen agent",
	Long: `Route a message through the organization and execute the selected agent
through its provider. Provider output streams to the terminal, and a trace of
the run is written under <home>/runs.

The process exits with the provider's exit code when execution fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		entry := entryAgent(a, runAs)
		stdout := cmd.OutOrStdout()
		stderr := cmd.ErrOrStderr()

		opts := orchestrator.RunOptions{
			Message:      strings.Join(args, " "),
			SessionRef:   runSession,
			Cwd:          runCwd,
			SystemPrompt: runSystemPrompt,
			Stdout:       stdout,
			Stderr:       stderr,
		}
		if runJSON {
			opts.Stdout = io.Discard
			opts.Stderr = io.Discard
		}

		result, err := a.runner().RunAgent(cmd.Context(), entry, opts)
		if result == nil {
			return err
		}

		if runJSON {
			if jerr := printJSON(stdout, result); jerr != nil {
				return jerr
			}
		} else {
			fmt.Fprintln(stderr, routingSummary(result.Routing))
			if result.TracePath != "" {
				fmt.Fprintf(stderr, "%s %s\n", labelStyle.Render("trace:"), result.TracePath)
			}
		}

		var traceErr *orchestrator.TraceWriteError
		if errors.As(err, &traceErr) {
			printStatus(stderr, "!", fmt.Sprintf("Run trace not saved: %v", traceErr.Err), color.FgYellow)
		}
		var execErr *orchestrator.ExecutionError
		if errors.As(err, &execErr) {
			return &exitCodeError{code: execErr.ExitCode, err: execErr}
		}
		return nil
	}),
}

// entryAgent picks the agent a message enters through.
func entryAgent(a *app, as string) string {
	if as != "" {
		return as
	}
	return a.cfg.Org.RootAgent
}

func printDecision(w io.Writer, d models.RoutingDecision) {
	fmt.Fprintln(w, routingSummary(d))
	if d.Delegated() && d.RewrittenMessage != "" {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("message:"), d.RewrittenMessage)
	}
	if len(d.Candidates) == 0 {
		return
	}
	fmt.Fprintln(w, labelStyle.Render("Candidates:"))
	for _, c := range d.Candidates {
		line := fmt.Sprintf("  %-20s %.2f", c.AgentID, c.Score)
		if len(c.MatchedTerms) > 0 {
			line += " " + labelStyle.Render("["+strings.Join(c.MatchedTerms, ", ")+"]")
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	routeCmd.Flags().StringVar(&routeAs, "as", "", "Entry agent id (default: root agent)")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the routing decision as JSON")

	runCmd.Flags().StringVar(&runAs, "as", "", "Entry agent id (default: root agent)")
	runCmd.Flags().StringVar(&runSession, "session", "", "Provider session reference")
	runCmd.Flags().StringVar(&runCwd, "cwd", "", "Working directory for the provider (default: agent workspace)")
	runCmd.Flags().StringVar(&runSystemPrompt, "system-prompt", "", "System prompt passed to the provider")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON instead of streaming output")
}
