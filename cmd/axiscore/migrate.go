package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wellb3tz/axiscore/internal/database"
	"github.com/wellb3tz/axiscore/internal/database/migration"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `apply the embedded schema migrations and exit`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		return migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host)
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
