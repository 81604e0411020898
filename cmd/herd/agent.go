package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/herd/internal/org"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect and create agents",
}

var agentListJSON bool

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every agent in the organization",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		manifests, err := a.graph().ListManifests(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if agentListJSON {
			return printJSON(out, manifests)
		}
		if len(manifests) == 0 {
			fmt.Fprintln(out, "No agents. Run 'herd agent init <id>' to create one.")
			return nil
		}
		for _, m := range manifests {
			reports := "-"
			if m.ReportsTo != nil {
				reports = *m.ReportsTo
			}
			fmt.Fprintf(out, "%s %s %s %s\n",
				idStyle.Render(m.ID),
				m.Name,
				labelStyle.Render(string(m.Type)),
				labelStyle.Render("reports to "+reports),
			)
		}
		return nil
	}),
}

var agentInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show an agent's normalized manifest",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		m, err := a.graph().GetManifest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), m)
	}),
}

var (
	agentInitName        string
	agentInitDescription string
	agentInitType        string
	agentInitReportsTo   string
	agentInitTags        []string
	agentInitSkills      []string
	agentInitPriority    int
	agentInitProvider    string
)

var agentInitCmd = &cobra.Command{
	Use:   "init <id>",
	Short: "Create an agent workspace with an AGENTS.md manifest",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		id := org.NormalizeID(args[0])
		if id == "" {
			return fmt.Errorf("%w: %q", org.ErrInvalidAgentID, args[0])
		}

		bag := map[string]any{
			"tags":   agentInitTags,
			"skills": agentInitSkills,
		}
		if agentInitName != "" {
			bag["name"] = agentInitName
		}
		if agentInitDescription != "" {
			bag["description"] = agentInitDescription
		}
		if agentInitType != "" {
			bag["type"] = agentInitType
		}
		if agentInitReportsTo != "" {
			bag["reportsTo"] = agentInitReportsTo
		}
		if cmd.Flags().Changed("priority") {
			bag["priority"] = agentInitPriority
		}
		if agentInitProvider != "" {
			bag["provider"] = agentInitProvider
		}

		m := org.Normalize(id, "", a.cfg.Org.RootAgent, org.DecodeMetadata(bag))
		body := fmt.Sprintf("# %s\n\n%s\n", m.Name, m.Description)
		path, err := org.NewDirSource(a.cfg.WorkspacesDir()).WriteManifest(m, body)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printStatus(out, "✓", fmt.Sprintf("Created %s (%s)", m.ID, m.Type), color.FgGreen)
		fmt.Fprintf(out, "  %s\n", path)
		if len(m.Skills) > 0 {
			fmt.Fprintf(out, "  skills: %s\n", strings.Join(m.Skills, ", "))
		}
		return nil
	}),
}

func init() {
	agentListCmd.Flags().BoolVar(&agentListJSON, "json", false, "Print manifests as JSON")

	agentInitCmd.Flags().StringVar(&agentInitName, "name", "", "Display name")
	agentInitCmd.Flags().StringVar(&agentInitDescription, "description", "", "Short description used for routing")
	agentInitCmd.Flags().StringVar(&agentInitType, "type", "", "manager or individual")
	agentInitCmd.Flags().StringVar(&agentInitReportsTo, "reports-to", "", "Manager agent id (default: root agent)")
	agentInitCmd.Flags().StringSliceVar(&agentInitTags, "tags", nil, "Routing keywords")
	agentInitCmd.Flags().StringSliceVar(&agentInitSkills, "skills", nil, "Skill ids")
	agentInitCmd.Flags().IntVar(&agentInitPriority, "priority", org.DefaultPriority, "Routing priority")
	agentInitCmd.Flags().StringVar(&agentInitProvider, "provider", "", "Provider id bound to this agent")

	agentCmd.AddCommand(agentListCmd)
	agentCmd.AddCommand(agentInfoCmd)
	agentCmd.AddCommand(agentInitCmd)
}
