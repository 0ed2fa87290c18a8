// Command volidctl is the operator CLI: schema migrations, sample credential
// renders and development tokens.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"volid/internal/platform/config"
	"volid/internal/platform/logger"
)

// appContext carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type appContext struct {
	cfg    *config.Server
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &appContext{}
	rootCmd := &cobra.Command{
		Use:           "volidctl",
		Short:         "Operator tooling for the volunteer credential service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd(app))
	rootCmd.AddCommand(renderSampleCmd(app))
	rootCmd.AddCommand(tokenCmd(app))
	return rootCmd
}
