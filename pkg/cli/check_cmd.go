package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "check <role> <database.schema.agent>",
		Short: "Check whether a role can use an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := parseAgentFQN(args[1])
			if err != nil {
				return err
			}
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := state.analysis.CheckCompatibility(cmd.Context(), args[0], agent)
			if err != nil {
				return err
			}
			if state.output == "json" {
				return printJSON(os.Stdout, report)
			}

			fmt.Printf("Role %s vs agent %s\n\n", report.Role, report.Agent.FQN())
			rows := [][]string{
				{"USAGE on agent", yesNo(report.HasAgentAccess)},
				{"Cortex database role", yesNo(report.HasCortex)},
				{"Warehouse usage", yesNo(report.HasWarehouse)},
				{"Object grants complete", yesNo(report.Satisfied)},
			}
			if err := printTable(os.Stdout, []string{"check", "result"}, rows); err != nil {
				return err
			}
			if report.Compatible() {
				fmt.Println("\nCompatible: the role can use this agent.")
				return nil
			}
			fmt.Println("\nNot compatible.")
			if report.FixSQL != "" {
				fmt.Println("\n" + report.FixSQL)
			}
			return nil
		},
	}
}
