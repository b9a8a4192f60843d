package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the backup database with the primary's schema",
	Long: `Initialize wipes the backup database and recreates every table of the
primary database in it, schema only. Run it once before the first backup, or
again to reset a backup that has drifted.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.service.Initialize(context.Background()); err != nil {
		app.display.Error("Initialization failed: %v", err)
		return err
	}

	app.display.Success("Backup database initialized with the primary schema")
	return nil
}
