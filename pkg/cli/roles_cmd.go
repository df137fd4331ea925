package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cortex-grants/internal/domain"
)

func newRolesCmd(state *cliState) *cobra.Command {
	rolesCmd := &cobra.Command{
		Use:   "roles",
		Short: "Inspect account roles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List roles visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			roles, err := state.analysis.ListRoles(cmd.Context())
			if err != nil {
				return err
			}
			if state.output == "json" {
				return printJSON(os.Stdout, map[string]any{"roles": roles})
			}
			rows := make([][]string, 0, len(roles))
			for _, role := range roles {
				rows = append(rows, []string{role})
			}
			return printTable(os.Stdout, []string{"role"}, rows)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <role>",
		Short: "Check a role's Cortex readiness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.connect(cmd.Context()); err != nil {
				return err
			}
			report, err := state.analysis.CheckRole(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if state.output == "json" {
				return printJSON(os.Stdout, report)
			}
			printRoleReport(report)
			return nil
		},
	}

	rolesCmd.AddCommand(listCmd, checkCmd)
	return rolesCmd
}

func printRoleReport(report *domain.RoleReport) {
	fmt.Printf("Role:      %s\n", report.Role)
	fmt.Printf("Readiness: %d/%d\n", report.ReadinessScore, domain.ReadinessMax)
	fmt.Printf("Cortex:    %s", yesNo(report.HasCortex))
	if len(report.CortexRoles) > 0 {
		fmt.Printf(" (%v)", report.CortexRoles)
	}
	fmt.Println()
	fmt.Printf("Grants:    %d warehouse, %d database, %d table/view SELECT\n",
		report.WarehouseCount, report.DatabaseCount, report.TableCount)
	if len(report.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, issue := range report.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	if report.RemediationSQL != "" {
		fmt.Println("\n" + report.RemediationSQL)
	}
}
