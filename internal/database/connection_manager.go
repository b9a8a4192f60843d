package database

import (
	"database/sql"
	"fmt"
)

// ConnectionManager holds the two long-lived pooled connections: the live
// primary database and the backup mirror database
type ConnectionManager struct {
	service   DatabaseService
	primaryDB *sql.DB
	backupDB  *sql.DB
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		service: NewService(),
	}
}

// NewConnectionManagerWithService creates a new connection manager with a custom service
func NewConnectionManagerWithService(service DatabaseService) *ConnectionManager {
	return &ConnectionManager{
		service: service,
	}
}

// ConnectToPrimary establishes the connection to the primary database
func (cm *ConnectionManager) ConnectToPrimary(config Config) error {
	if cm.primaryDB != nil {
		cm.service.Close(cm.primaryDB)
	}

	db, err := cm.service.Connect(config)
	if err != nil {
		return fmt.Errorf("failed to connect to primary database: %w", err)
	}

	cm.primaryDB = db
	return nil
}

// ConnectToBackup establishes the connection to the backup database
func (cm *ConnectionManager) ConnectToBackup(config Config) error {
	if cm.backupDB != nil {
		cm.service.Close(cm.backupDB)
	}

	db, err := cm.service.Connect(config)
	if err != nil {
		return fmt.Errorf("failed to connect to backup database: %w", err)
	}

	cm.backupDB = db
	return nil
}

// Primary returns the primary database connection
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primaryDB
}

// Backup returns the backup database connection
func (cm *ConnectionManager) Backup() *sql.DB {
	return cm.backupDB
}

// TestConnections tests both database connections
func (cm *ConnectionManager) TestConnections() error {
	if cm.primaryDB == nil {
		return fmt.Errorf("primary database connection is not established")
	}
	if cm.backupDB == nil {
		return fmt.Errorf("backup database connection is not established")
	}

	if err := cm.service.TestConnection(cm.primaryDB); err != nil {
		return fmt.Errorf("primary database connection test failed: %w", err)
	}
	if err := cm.service.TestConnection(cm.backupDB); err != nil {
		return fmt.Errorf("backup database connection test failed: %w", err)
	}

	return nil
}

// Close gracefully closes both database connections
func (cm *ConnectionManager) Close() error {
	var errs []error

	if cm.primaryDB != nil {
		if err := cm.service.Close(cm.primaryDB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close primary database: %w", err))
		}
		cm.primaryDB = nil
	}

	if cm.backupDB != nil {
		if err := cm.service.Close(cm.backupDB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close backup database: %w", err))
		}
		cm.backupDB = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}

	return nil
}

// GetVersions returns the server versions of both databases
func (cm *ConnectionManager) GetVersions() (primaryVersion, backupVersion string, err error) {
	if cm.primaryDB == nil || cm.backupDB == nil {
		return "", "", fmt.Errorf("both database connections must be established")
	}

	primaryVersion, err = cm.service.GetVersion(cm.primaryDB)
	if err != nil {
		return "", "", fmt.Errorf("failed to get primary database version: %w", err)
	}

	backupVersion, err = cm.service.GetVersion(cm.backupDB)
	if err != nil {
		return "", "", fmt.Errorf("failed to get backup database version: %w", err)
	}

	return primaryVersion, backupVersion, nil
}
