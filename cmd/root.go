package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mysql-db-mirror/internal/database"
	"mysql-db-mirror/internal/display"
	"mysql-db-mirror/internal/logging"
	"mysql-db-mirror/internal/mirror"
)

var cfgFile string

// CLI flag variables
var (
	// Primary database flags
	primaryHost     string
	primaryPort     int
	primaryUsername string
	primaryPassword string
	primaryDatabase string

	// Backup database flags
	backupHost     string
	backupPort     int
	backupUsername string
	backupPassword string
	backupDatabase string

	// Operation flags
	verbose bool
	quiet   bool
	workers int
	timeout time.Duration
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mysql-db-mirror",
	Short: "Mirror a MySQL database into a backup and restore it atomically",
	Long: `MySQL DB Mirror keeps a full backup copy of a primary MySQL database and
restores it atomically when the primary is lost or corrupted.

Backups replicate every table's schema and rows into the backup database.
Restores stage each table under a temporary name and rename the complete set
into place, so readers always see either the old data or the new data and a
failed restore leaves the primary untouched.

Examples:
  # Initialize the backup database with the primary's schema
  mysql-db-mirror init --config=config.yaml

  # Run one backup pass
  mysql-db-mirror backup --config=config.yaml

  # Restore the primary from the backup (destructive, requires --confirm)
  mysql-db-mirror restore --confirm --config=config.yaml

  # Show mirror status as JSON
  mysql-db-mirror status --format=json --config=config.yaml

  # Run the backup scheduler until interrupted
  mysql-db-mirror watch --interval=6h --config=config.yaml`,
	SilenceUsage: true,
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mysql-db-mirror.yaml)")

	// Primary database flags
	rootCmd.PersistentFlags().StringVar(&primaryHost, "primary-host", "", "primary database host")
	rootCmd.PersistentFlags().IntVar(&primaryPort, "primary-port", 3306, "primary database port")
	rootCmd.PersistentFlags().StringVar(&primaryUsername, "primary-user", "", "primary database username")
	rootCmd.PersistentFlags().StringVar(&primaryPassword, "primary-password", "", "primary database password")
	rootCmd.PersistentFlags().StringVar(&primaryDatabase, "primary-db", "", "primary database name")

	// Backup database flags
	rootCmd.PersistentFlags().StringVar(&backupHost, "backup-host", "", "backup database host")
	rootCmd.PersistentFlags().IntVar(&backupPort, "backup-port", 3306, "backup database port")
	rootCmd.PersistentFlags().StringVar(&backupUsername, "backup-user", "", "backup database username")
	rootCmd.PersistentFlags().StringVar(&backupPassword, "backup-password", "", "backup database password")
	rootCmd.PersistentFlags().StringVar(&backupDatabase, "backup-db", "", "backup database name")

	// Operation flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 4, "concurrent tables per mirror pass")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "database operation timeout")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to file in addition to stdout")

	// Bind flags to viper
	viper.BindPFlag("primary.host", rootCmd.PersistentFlags().Lookup("primary-host"))
	viper.BindPFlag("primary.port", rootCmd.PersistentFlags().Lookup("primary-port"))
	viper.BindPFlag("primary.username", rootCmd.PersistentFlags().Lookup("primary-user"))
	viper.BindPFlag("primary.password", rootCmd.PersistentFlags().Lookup("primary-password"))
	viper.BindPFlag("primary.database", rootCmd.PersistentFlags().Lookup("primary-db"))

	viper.BindPFlag("backup.host", rootCmd.PersistentFlags().Lookup("backup-host"))
	viper.BindPFlag("backup.port", rootCmd.PersistentFlags().Lookup("backup-port"))
	viper.BindPFlag("backup.username", rootCmd.PersistentFlags().Lookup("backup-user"))
	viper.BindPFlag("backup.password", rootCmd.PersistentFlags().Lookup("backup-password"))
	viper.BindPFlag("backup.database", rootCmd.PersistentFlags().Lookup("backup-db"))

	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mysql-db-mirror")
	}

	viper.SetEnvPrefix("MYSQL_DB_MIRROR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// buildConfig assembles the mirror configuration from viper and flag overrides
func buildConfig(cmd *cobra.Command) (*database.MirrorConfig, error) {
	if verbose && quiet {
		return nil, fmt.Errorf("--verbose and --quiet flags are mutually exclusive")
	}

	config := &database.MirrorConfig{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	flags := cmd.Flags()
	if primaryHost != "" {
		config.Primary.Host = primaryHost
	}
	if flags.Changed("primary-port") {
		config.Primary.Port = primaryPort
	}
	if primaryUsername != "" {
		config.Primary.Username = primaryUsername
	}
	if primaryPassword != "" {
		config.Primary.Password = primaryPassword
	}
	if primaryDatabase != "" {
		config.Primary.Database = primaryDatabase
	}

	if backupHost != "" {
		config.Backup.Host = backupHost
	}
	if flags.Changed("backup-port") {
		config.Backup.Port = backupPort
	}
	if backupUsername != "" {
		config.Backup.Username = backupUsername
	}
	if backupPassword != "" {
		config.Backup.Password = backupPassword
	}
	if backupDatabase != "" {
		config.Backup.Database = backupDatabase
	}

	if flags.Changed("workers") {
		config.Workers = workers
	}
	if flags.Changed("timeout") {
		config.Primary.Timeout = timeout
		config.Backup.Timeout = timeout
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// app bundles the wired-up services a subcommand needs
type app struct {
	config      *database.MirrorConfig
	connections *database.ConnectionManager
	service     *mirror.Service
	logger      *logging.Logger
	display     *display.Service
}

// newApp builds the configuration, connects both databases, and wires the
// mirror service. The caller must Close the returned app.
func newApp(cmd *cobra.Command) (*app, error) {
	config, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	connections := database.NewConnectionManager()
	if err := connections.ConnectToPrimary(config.Primary); err != nil {
		return nil, err
	}
	if err := connections.ConnectToBackup(config.Backup); err != nil {
		connections.Close()
		return nil, err
	}

	opts := mirror.DefaultOptions()
	opts.Workers = config.Workers
	opts.QueryTimeout = config.Primary.Timeout

	return &app{
		config:      config,
		connections: connections,
		service:     mirror.NewService(connections.Primary(), connections.Backup(), logger, opts),
		logger:      logger,
		display:     display.NewDefaultService(),
	}, nil
}

func (a *app) Close() {
	if err := a.connections.Close(); err != nil {
		a.logger.WithField("error", err.Error()).Warn("Failed to close database connections")
	}
}

func newLogger() (*logging.Logger, error) {
	level := logging.LogLevelNormal
	if verbose {
		level = logging.LogLevelVerbose
	}
	if quiet {
		level = logging.LogLevelQuiet
	}

	return logging.NewLogger(logging.Config{
		Level:   level,
		Format:  "text",
		LogFile: logFile,
	})
}
