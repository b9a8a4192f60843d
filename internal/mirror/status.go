package mirror

import (
	"context"
	"database/sql"
	"time"

	"mysql-db-mirror/internal/errors"
	"mysql-db-mirror/internal/logging"
)

// Status is the persisted single-row record of the mirror's backup history.
// It lives in the primary database under a reserved name, so a restore never
// touches it.
type Status struct {
	LastBackupTime    *time.Time `json:"last_backup_time" yaml:"last_backup_time"`
	LastBackupSuccess bool       `json:"last_backup_success" yaml:"last_backup_success"`
	LastBackupError   string     `json:"last_backup_error,omitempty" yaml:"last_backup_error,omitempty"`
	BackupCount       int64      `json:"backup_count" yaml:"backup_count"`
	AutoBackupEnabled bool       `json:"auto_backup_enabled" yaml:"auto_backup_enabled"`
}

// StatusStore reads and writes the single mirror status row
type StatusStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewStatusStore creates a status store backed by the primary database
func NewStatusStore(db *sql.DB, logger *logging.Logger) *StatusStore {
	return &StatusStore{db: db, logger: logger}
}

const createStatusTableSQL = "CREATE TABLE IF NOT EXISTS `" + StatusTableName + "` (" +
	"`id` TINYINT UNSIGNED NOT NULL, " +
	"`last_backup_time` DATETIME NULL, " +
	"`last_backup_success` TINYINT(1) NOT NULL DEFAULT 0, " +
	"`last_backup_error` TEXT NULL, " +
	"`backup_count` INT UNSIGNED NOT NULL DEFAULT 0, " +
	"`auto_backup_enabled` TINYINT(1) NOT NULL DEFAULT 1, " +
	"PRIMARY KEY (`id`))"

// ensure creates the status table and its default row on first use
func (s *StatusStore) ensure(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createStatusTableSQL); err != nil {
		return errors.WrapError(err, "failed to create status table")
	}

	if _, err := s.db.ExecContext(ctx, "INSERT IGNORE INTO `"+StatusTableName+"` (`id`) VALUES (1)"); err != nil {
		return errors.WrapError(err, "failed to seed status row")
	}

	return nil
}

// Load returns the current status, creating the row with defaults on first use
func (s *StatusStore) Load(ctx context.Context) (Status, error) {
	if err := s.ensure(ctx); err != nil {
		return Status{}, err
	}

	query := "SELECT `last_backup_time`, `last_backup_success`, `last_backup_error`, " +
		"`backup_count`, `auto_backup_enabled` FROM `" + StatusTableName + "` WHERE `id` = 1"

	var (
		lastBackupTime sql.NullTime
		lastError      sql.NullString
		status         Status
	)

	err := s.db.QueryRowContext(ctx, query).Scan(
		&lastBackupTime,
		&status.LastBackupSuccess,
		&lastError,
		&status.BackupCount,
		&status.AutoBackupEnabled,
	)
	if err != nil {
		return Status{}, errors.WrapError(err, "failed to load mirror status")
	}

	if lastBackupTime.Valid {
		t := lastBackupTime.Time
		status.LastBackupTime = &t
	}
	if lastError.Valid {
		status.LastBackupError = lastError.String
	}

	return status, nil
}

// Record persists the outcome of a backup attempt. The timestamp and
// success/error fields are always written; the counter increments only on
// success.
func (s *StatusStore) Record(ctx context.Context, finishedAt time.Time, runErr error) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	var (
		errText   interface{}
		success   bool
		increment int64
	)
	if runErr != nil {
		errText = runErr.Error()
	} else {
		success = true
		increment = 1
	}

	query := "UPDATE `" + StatusTableName + "` SET " +
		"`last_backup_time` = ?, `last_backup_success` = ?, `last_backup_error` = ?, " +
		"`backup_count` = `backup_count` + ? WHERE `id` = 1"

	if _, err := s.db.ExecContext(ctx, query, finishedAt, success, errText, increment); err != nil {
		return errors.WrapError(err, "failed to record backup outcome")
	}

	return nil
}

// SetAutoBackup toggles the persisted automatic-backup flag
func (s *StatusStore) SetAutoBackup(ctx context.Context, enabled bool) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	query := "UPDATE `" + StatusTableName + "` SET `auto_backup_enabled` = ? WHERE `id` = 1"
	if _, err := s.db.ExecContext(ctx, query, enabled); err != nil {
		return errors.WrapError(err, "failed to update auto-backup flag")
	}

	s.logger.WithField("enabled", enabled).Info("Auto-backup flag updated")
	return nil
}
