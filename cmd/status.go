package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mysql-db-mirror/internal/database"
	"mysql-db-mirror/internal/mirror"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mirror status and primary database health",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the serialized form of the status command output
type statusReport struct {
	Mirror mirror.Status         `json:"mirror" yaml:"mirror"`
	Health database.HealthStatus `json:"health" yaml:"health"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	status, err := app.service.Status(ctx)
	if err != nil {
		app.display.Error("Failed to read mirror status: %v", err)
		return err
	}
	health := app.service.CheckHealth(ctx)

	report := statusReport{Mirror: status, Health: health}

	switch statusFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(report)
	case "table":
		printStatusTable(app, report)
		return nil
	default:
		return fmt.Errorf("unsupported format %q, must be one of: table, json, yaml", statusFormat)
	}
}

func printStatusTable(app *app, report statusReport) {
	if report.Health.Healthy {
		app.display.Success("Primary reachable (%s)", report.Health.Latency.Round(time.Millisecond))
	} else {
		app.display.Error("Primary unreachable: %s", report.Health.Error)
	}

	if report.Mirror.LastBackupTime == nil {
		app.display.Warn("No backup has run yet")
	} else if report.Mirror.LastBackupSuccess {
		app.display.Success("Last backup %s", report.Mirror.LastBackupTime.Format("2006-01-02 15:04:05 MST"))
	} else {
		app.display.Error("Last backup failed at %s: %s",
			report.Mirror.LastBackupTime.Format("2006-01-02 15:04:05 MST"), report.Mirror.LastBackupError)
	}

	app.display.Info("Successful backups: %d", report.Mirror.BackupCount)
	if report.Mirror.AutoBackupEnabled {
		app.display.Info("Automatic backups: enabled")
	} else {
		app.display.Warn("Automatic backups: disabled")
	}
}
