package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cortex-grants/internal/domain"
)

// parseAgentFQN splits DB.SCHEMA.NAME into an Agent.
func parseAgentFQN(fqn string) (domain.Agent, error) {
	parts := strings.Split(fqn, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return domain.Agent{}, fmt.Errorf("agent name %q must be fully qualified as DATABASE.SCHEMA.AGENT", fqn)
	}
	return domain.Agent{Database: parts[0], Schema: parts[1], Name: parts[2]}, nil
}

func newAgentsCmd(state *cliState) *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect Cortex agents and generate grant scripts",
	}

	var database, schema string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List Cortex agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			agents, err := state.analysis.ListAgents(cmd.Context(), database, schema)
			if err != nil {
				return err
			}
			if state.output == "json" {
				return printJSON(os.Stdout, map[string]any{"agents": agents})
			}
			rows := make([][]string, 0, len(agents))
			for _, a := range agents {
				rows = append(rows, []string{a.Database, a.Schema, a.Name})
			}
			return printTable(os.Stdout, []string{"database", "schema", "agent"}, rows)
		},
	}
	listCmd.Flags().StringVar(&database, "database", "", "Limit to one database")
	listCmd.Flags().StringVar(&schema, "schema", "", "Limit to one schema (requires --database)")

	describeCmd := &cobra.Command{
		Use:   "describe <database.schema.agent>",
		Short: "Show an agent's tools and required privileges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAgentFQN(args[0])
			if err != nil {
				return err
			}
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := state.analysis.AnalyzeAgent(cmd.Context(), agent, "")
			if err != nil {
				return err
			}
			if state.output == "json" {
				return printJSON(os.Stdout, report)
			}
			printAgentSummary(report)
			return nil
		},
	}

	var role, outPath string
	scriptCmd := &cobra.Command{
		Use:   "script <database.schema.agent>",
		Short: "Generate the least-privilege grant script for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAgentFQN(args[0])
			if err != nil {
				return err
			}
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := state.analysis.AnalyzeAgent(cmd.Context(), agent, role)
			if err != nil {
				return err
			}
			for _, d := range report.Diagnostics {
				fmt.Fprintf(os.Stderr, "warning: %s: %s\n", d.Tool, d.Message)
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(report.Script), 0o644); err != nil {
					return fmt.Errorf("write script: %w", err)
				}
				fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
				return nil
			}
			fmt.Print(report.Script)
			return nil
		},
	}
	scriptCmd.Flags().StringVar(&role, "role", "", "Consumer role name (default <AGENT>_USER_ROLE)")
	scriptCmd.Flags().StringVar(&outPath, "out", "", "Write the script to a file instead of stdout")

	agentsCmd.AddCommand(listCmd, describeCmd, scriptCmd)
	return agentsCmd
}

func printAgentSummary(report *domain.AgentReport) {
	fmt.Printf("Agent: %s\n\n", report.Agent.FQN())
	if len(report.Tools) > 0 {
		fmt.Println("Tools:")
		for _, t := range report.Tools {
			if t.ResourceRef != "" {
				fmt.Printf("  - %s (%s) -> %s\n", t.Name, t.Kind, t.ResourceRef)
			} else {
				fmt.Printf("  - %s (%s)\n", t.Name, t.Kind)
			}
		}
	}
	if len(report.Diagnostics) > 0 {
		fmt.Println("\nDiagnostics:")
		for _, d := range report.Diagnostics {
			fmt.Printf("  - %s: %s\n", d.Tool, d.Message)
		}
	}
	set := report.Required
	fmt.Printf("\nRequired objects (%d):\n", set.Count())
	printNames := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Printf("  %s:\n", label)
		for _, n := range names {
			fmt.Printf("    %s\n", n)
		}
	}
	printNames("Databases", set.Databases())
	printNames("Schemas", set.Schemas())
	printNames("Views", set.Views())
	printNames("Tables", set.Tables())
	printNames("Search services", set.SearchServices())
	printNames("Procedures", set.Procedures())
	printNames("Stages", set.Stages())
}
