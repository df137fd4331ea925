// Package cli implements the cortex-grants command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cortex-grants/internal/app"
	"cortex-grants/internal/config"
	"cortex-grants/internal/metadata"
	"cortex-grants/internal/service"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// cliState carries the lazily-opened connection and wired services shared by
// all subcommands.
type cliState struct {
	output   string
	logLevel string

	cfg      *config.Config
	analysis *service.Analysis
	closeDB  func() error
}

// connect opens the Snowflake session and wires the analysis service. Called
// by subcommands that need the account, not by ones like version that don't.
func (s *cliState) connect(ctx context.Context) error {
	if s.analysis != nil {
		return nil
	}
	_ = godotenv.Load()
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	db, err := metadata.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to snowflake: %w", err)
	}
	a := app.New(app.Deps{
		Cfg:    cfg,
		Reader: metadata.NewReader(db, logger),
		Logger: logger,
	})
	s.cfg = cfg
	s.analysis = a.Analysis
	s.closeDB = db.Close
	return nil
}

func (s *cliState) close() {
	if s.closeDB != nil {
		_ = s.closeDB()
	}
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "cortex-grants",
		Short:         "Snowflake Cortex agent grant toolkit",
		Long:          "Check role readiness for Cortex and generate least-privilege grant scripts for Cortex agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			state.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&state.output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&state.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if state.output != "table" && state.output != "json" {
			return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", state.output)
		}
		return nil
	}

	rootCmd.AddCommand(newRolesCmd(state))
	rootCmd.AddCommand(newAgentsCmd(state))
	rootCmd.AddCommand(newCheckCmd(state))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
