package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run one backup pass from the primary to the backup database",
	Long: `Backup replicates every table of the primary database into the backup
database using the same staged-swap protocol as restore, so a reader of the
backup never sees a half-replaced table. The outcome is recorded in the
mirror status row either way.`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	startTime := time.Now()
	if _, err := app.service.Backup(context.Background()); err != nil {
		app.display.Error("Backup failed: %v", err)
		return err
	}

	app.display.Success("Backup completed in %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}
