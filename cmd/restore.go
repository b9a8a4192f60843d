package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var restoreConfirm bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the primary database from the backup",
	Long: `Restore replaces every application table of the primary database with the
backup's copy. Tables are staged under temporary names and renamed into place
atomically: a failure during staging leaves the primary untouched.

This is a destructive operation against the primary database and refuses to
run without --confirm.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreConfirm, "confirm", false, "confirm overwriting the primary database")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if !restoreConfirm {
		app.display.Warn("Restore overwrites the primary database; re-run with --confirm to proceed")
	}

	startTime := time.Now()
	if _, err := app.service.RestoreFromBackup(context.Background(), restoreConfirm); err != nil {
		app.display.Error("Restore failed: %v", err)
		return err
	}

	app.display.Success("Primary restored from backup in %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}
