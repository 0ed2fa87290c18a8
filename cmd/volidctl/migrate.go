package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"volid/internal/platform/postgres"
)

func migrateCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbCfg := app.cfg.Database
			if dbCfg.URL == "" {
				return errors.New("DATABASE_URL is required")
			}
			db, err := postgres.Open(cmd.Context(), postgres.Config{
				URL:          dbCfg.URL,
				MaxOpenConns: 1,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.RunMigrations(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}
