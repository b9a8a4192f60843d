package database

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the connection parameters for one database
type Config struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Database string        `mapstructure:"database" yaml:"database"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MirrorConfig holds the full mirror configuration: the live primary database
// and the backup database that mirrors it
type MirrorConfig struct {
	Primary  Config        `mapstructure:"primary" yaml:"primary"`
	Backup   Config        `mapstructure:"backup" yaml:"backup"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Workers  int           `mapstructure:"workers" yaml:"workers"`
}

// Validate checks if the database configuration has all required parameters
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if c.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}

	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %v", errs)
	}

	return nil
}

// DSN returns the Data Source Name for the MySQL connection.
// parseTime is mandatory: temporal values must round-trip as time.Time so
// replicated rows keep their type.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&parseTime=true",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Timeout)
}

// Validate checks if the mirror configuration is valid
func (mc *MirrorConfig) Validate() error {
	if err := mc.Primary.Validate(); err != nil {
		return fmt.Errorf("primary database: %w", err)
	}

	if err := mc.Backup.Validate(); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}

	if mc.Primary.Host == mc.Backup.Host && mc.Primary.Port == mc.Backup.Port &&
		mc.Primary.Database == mc.Backup.Database {
		return errors.New("primary and backup must be different databases")
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (mc *MirrorConfig) SetDefaults() {
	if mc.Primary.Port == 0 {
		mc.Primary.Port = 3306
	}
	if mc.Backup.Port == 0 {
		mc.Backup.Port = 3306
	}

	if mc.Primary.Timeout == 0 {
		mc.Primary.Timeout = 30 * time.Second
	}
	if mc.Backup.Timeout == 0 {
		mc.Backup.Timeout = 30 * time.Second
	}

	if mc.Interval == 0 {
		mc.Interval = 6 * time.Hour
	}
	if mc.Workers == 0 {
		mc.Workers = 4
	}
}
