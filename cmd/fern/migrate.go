package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := &application{cfg: cli.cfg, logger: cli.logger}
			boot := app.dependencies(false)
			if err := boot.Start(cmd.Context()); err != nil {
				return err
			}
			cli.logger.Infof("database %s is up to date", cli.cfg.DatabaseName)
			return boot.Stop(cmd.Context())
		},
	}
}
