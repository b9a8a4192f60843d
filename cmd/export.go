package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mysql-db-mirror/internal/export"
	"mysql-db-mirror/internal/introspect"
)

var (
	exportOutput      string
	exportCompression string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the backup database as an SQL script",
	Long: `Export serializes every application table of the backup database into an
SQL script for offline inspection or archival, optionally compressed with
gzip, lz4 or zstd.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path (required)")
	exportCmd.Flags().StringVar(&exportCompression, "compression", "none", "compression algorithm (none, gzip, lz4, zstd)")
	exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	algorithm, err := export.ParseAlgorithm(exportCompression)
	if err != nil {
		return err
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	path := exportOutput
	if ext := algorithm.Extension(); ext != "" && !strings.HasSuffix(path, ext) {
		path += ext
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	dumper := export.NewDumper(introspect.NewIntrospectorWithTimeout(app.config.Primary.Timeout), app.logger)
	if err := dumper.Dump(context.Background(), app.connections.Backup(), file, algorithm); err != nil {
		file.Close()
		os.Remove(path)
		app.display.Error("Export failed: %v", err)
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to finalize output file: %w", err)
	}

	app.display.Success("Backup exported to %s", path)
	return nil
}
