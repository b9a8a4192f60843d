package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mysql-db-mirror/internal/mirror"
)

var (
	watchInterval time.Duration
	watchEnable   bool
	watchDisable  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the automatic backup scheduler until interrupted",
	Long: `Watch runs the backup scheduler in the foreground. An immediate backup
attempt fires on start when the last backup is stale or missing, then one
backup runs per interval while automatic backups are enabled. SIGINT or
SIGTERM stops the scheduler gracefully.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", mirror.DefaultBackupInterval, "time between automatic backups")
	watchCmd.Flags().BoolVar(&watchEnable, "enable", false, "enable automatic backups before starting")
	watchCmd.Flags().BoolVar(&watchDisable, "disable", false, "disable automatic backups and exit")
	watchCmd.MarkFlagsMutuallyExclusive("enable", "disable")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if watchDisable {
		if err := app.service.SetAutoBackup(ctx, false); err != nil {
			app.display.Error("Failed to disable automatic backups: %v", err)
			return err
		}
		app.display.Success("Automatic backups disabled")
		return nil
	}

	if watchEnable {
		if err := app.service.SetAutoBackup(ctx, true); err != nil {
			app.display.Error("Failed to enable automatic backups: %v", err)
			return err
		}
		app.display.Success("Automatic backups enabled")
	}

	scheduler := mirror.NewScheduler(app.service, app.logger, watchInterval)
	scheduler.Start()
	app.display.Info("Backup scheduler running every %s; press Ctrl+C to stop", scheduler.Interval())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	<-signals

	app.display.Info("Shutting down")
	scheduler.Stop()
	return nil
}
