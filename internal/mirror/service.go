package mirror

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"mysql-db-mirror/internal/database"
	"mysql-db-mirror/internal/introspect"
	"mysql-db-mirror/internal/logging"
)

// Options tunes a mirror service
type Options struct {
	// Workers bounds staging concurrency per run
	Workers int
	// BatchSize bounds rows per insert statement
	BatchSize int
	// QueryTimeout bounds individual introspection queries
	QueryTimeout time.Duration
	// HealthTimeout bounds the health probe round-trip
	HealthTimeout time.Duration
}

// DefaultOptions returns the default service options
func DefaultOptions() Options {
	return Options{
		Workers:       4,
		BatchSize:     defaultInsertBatchSize,
		QueryTimeout:  30 * time.Second,
		HealthTimeout: 3 * time.Second,
	}
}

// Service orchestrates full mirror passes between the primary and backup
// databases and persists the run status. A run-level lock serializes
// initialize, backup, and restore so a scheduled backup and a manual restore
// never interleave DDL on the primary.
type Service struct {
	primary *sql.DB
	backup  *sql.DB

	introspector *introspect.Introspector
	replicator   *Replicator
	swapper      *SwapCoordinator
	status       *StatusStore
	logger       *logging.Logger

	healthTimeout time.Duration

	runMu       sync.Mutex
	runInFlight atomic.Bool
}

// NewService creates a mirror service over the two database handles
func NewService(primary, backup *sql.DB, logger *logging.Logger, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultOptions().QueryTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultOptions().HealthTimeout
	}

	introspector := introspect.NewIntrospectorWithTimeout(opts.QueryTimeout)
	replicator := NewReplicatorWithBatchSize(introspector, logger, opts.BatchSize)

	return &Service{
		primary:       primary,
		backup:        backup,
		introspector:  introspector,
		replicator:    replicator,
		swapper:       NewSwapCoordinator(introspector, replicator, logger, opts.Workers),
		status:        NewStatusStore(primary, logger),
		logger:        logger,
		healthTimeout: opts.HealthTimeout,
	}
}

// Initialize wipes the backup database and recreates each primary table's
// schema in it, without rows. Foreign key checks on the backup are re-enabled
// even when a drop fails partway.
func (s *Service) Initialize(ctx context.Context) (bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.runInFlight.Store(true)
	defer s.runInFlight.Store(false)

	startTime := time.Now()
	tables, err := s.initialize(ctx)
	s.logger.LogMirrorRun("initialize", tables, time.Since(startTime), err)

	return err == nil, err
}

func (s *Service) initialize(ctx context.Context) (int, error) {
	backupTables, err := s.introspector.ListTables(ctx, s.backup)
	if err != nil {
		return 0, NewIntrospectionError("", "failed to list backup tables", err)
	}

	err = withForeignKeyChecksDisabled(ctx, s.backup, s.logger, func(conn *sql.Conn) error {
		for _, table := range backupTables {
			if _, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+introspect.QuoteIdentifier(table)); err != nil {
				return NewSchemaCreateError(table, "failed to drop backup table", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	primaryTables, err := s.introspector.ListTables(ctx, s.primary)
	if err != nil {
		return 0, NewIntrospectionError("", "failed to list primary tables", err)
	}
	tables := FilterApplicationTables(primaryTables)

	for _, table := range tables {
		def, err := s.introspector.GetDefinition(ctx, s.primary, table)
		if err != nil {
			return 0, NewIntrospectionError(table, "failed to capture table definition", err)
		}
		if _, err := s.backup.ExecContext(ctx, def.DDL); err != nil {
			return 0, NewSchemaCreateError(table, "failed to recreate schema in backup", err)
		}
	}

	return len(tables), nil
}

// Backup mirrors the primary into the backup database using the same staged
// swap protocol as restore, then records the outcome in the status row. The
// counter increments only on success; time and error are always recorded.
func (s *Service) Backup(ctx context.Context) (bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.runInFlight.Store(true)
	defer s.runInFlight.Store(false)

	startTime := time.Now()
	tables, err := s.swapper.RestoreInto(ctx, s.primary, s.backup)
	s.logger.LogMirrorRun("backup", tables, time.Since(startTime), err)

	if recordErr := s.status.Record(context.WithoutCancel(ctx), time.Now().UTC(), err); recordErr != nil {
		s.logger.WithField("error", recordErr.Error()).Error("Failed to record backup outcome")
		if err == nil {
			err = recordErr
		}
	}

	return err == nil, err
}

// RestoreFromBackup mirrors the backup into the primary via staged tables and
// atomic renames. It refuses to run without explicit confirmation. When
// staging fails, the primary is guaranteed unchanged.
func (s *Service) RestoreFromBackup(ctx context.Context, confirm bool) (bool, error) {
	if !confirm {
		return false, NewError(ErrTypeConfirmation, "", "restore requires explicit confirmation", nil)
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.runInFlight.Store(true)
	defer s.runInFlight.Store(false)

	startTime := time.Now()
	tables, err := s.swapper.RestoreInto(ctx, s.backup, s.primary)
	s.logger.LogMirrorRun("restore", tables, time.Since(startTime), err)

	return err == nil, err
}

// Status returns the persisted mirror status, creating it on first use
func (s *Service) Status(ctx context.Context) (Status, error) {
	return s.status.Load(ctx)
}

// SetAutoBackup toggles the persisted automatic-backup flag
func (s *Service) SetAutoBackup(ctx context.Context, enabled bool) error {
	return s.status.SetAutoBackup(ctx, enabled)
}

// CheckHealth probes the primary database with a short round-trip query
func (s *Service) CheckHealth(ctx context.Context) database.HealthStatus {
	return database.Health(ctx, s.primary, s.healthTimeout)
}

// RunInFlight reports whether a mirror run is currently executing. The
// scheduler uses it to skip a tick instead of queueing behind a manual run.
func (s *Service) RunInFlight() bool {
	return s.runInFlight.Load()
}
