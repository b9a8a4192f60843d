package mirror

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"mysql-db-mirror/internal/introspect"
	"mysql-db-mirror/internal/logging"
)

// SwapCoordinator makes a full mirror pass atomic from the reader's point of
// view. Replicated tables are staged under temporary names on the target, and
// only once every table staged successfully are they renamed into place, one
// atomic multi-table rename per table. A failure at any point before the
// renames leaves the target visibly unchanged.
type SwapCoordinator struct {
	introspector *introspect.Introspector
	replicator   *Replicator
	logger       *logging.Logger
	workers      int
}

// NewSwapCoordinator creates a swap coordinator with the given staging concurrency
func NewSwapCoordinator(introspector *introspect.Introspector, replicator *Replicator, logger *logging.Logger, workers int) *SwapCoordinator {
	if workers < 1 {
		workers = 1
	}
	return &SwapCoordinator{
		introspector: introspector,
		replicator:   replicator,
		logger:       logger,
		workers:      workers,
	}
}

// RestoreInto mirrors every application table of source into target and
// returns the number of tables swapped in. Reserved tables (the status row,
// staged and retired leftovers) are never part of the pass.
func (c *SwapCoordinator) RestoreInto(ctx context.Context, source, target *sql.DB) (int, error) {
	sourceTables, err := c.introspector.ListTables(ctx, source)
	if err != nil {
		return 0, NewIntrospectionError("", "failed to list source tables", err)
	}
	tables := FilterApplicationTables(sourceTables)

	if len(tables) == 0 {
		c.logger.Info("Source database holds no application tables; nothing to restore")
		return 0, nil
	}

	targetTables, err := c.introspector.ListTables(ctx, target)
	if err != nil {
		return 0, NewIntrospectionError("", "failed to list target tables", err)
	}
	liveSet := make(map[string]bool, len(targetTables))
	for _, table := range targetTables {
		liveSet[table] = true
	}

	runID := newRunID()

	// STAGING: each table all-or-nothing, any failure aborts the whole run
	// before a single rename happens.
	if err := c.stageTables(ctx, source, target, tables); err != nil {
		c.dropStagedTables(ctx, target, tables)
		return 0, err
	}

	// SWAPPING: only entered with every table staged.
	swapped, retired, err := c.swapTables(ctx, target, tables, liveSet, runID)
	if err != nil {
		c.dropStagedTables(ctx, target, tables[len(swapped):])
		return len(swapped), err
	}

	// CLEANUP: the swap already committed; a failed drop leaves an orphan
	// retired table behind but does not fail the restore.
	c.dropRetiredTables(ctx, target, retired)

	return len(swapped), nil
}

// stageTables replicates every table into its staged name using a bounded
// worker pool. The first failure cancels the remaining work.
func (c *SwapCoordinator) stageTables(ctx context.Context, source, target *sql.DB, tables []string) error {
	workers := c.workers
	if workers > len(tables) {
		workers = len(tables)
	}

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for table := range jobs {
				if _, err := c.replicator.Replicate(stageCtx, source, target, table, StagedName(table)); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, table := range tables {
			select {
			case jobs <- table:
			case <-stageCtx.Done():
				return
			}
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr == nil && ctx.Err() != nil {
		// Cancellation mid-staging behaves exactly like a staging failure:
		// full cleanup, no swap.
		firstErr = NewDataCopyError("", "staging canceled", ctx.Err())
	}
	return firstErr
}

// swapTables renames staged tables into place with foreign key checks
// disabled, returning the tables that were swapped before any failure and the
// retired names created along the way
func (c *SwapCoordinator) swapTables(ctx context.Context, target *sql.DB, tables []string, liveSet map[string]bool, runID string) ([]string, []string, error) {
	var swapped, retired []string

	err := withForeignKeyChecksDisabled(ctx, target, c.logger, func(conn *sql.Conn) error {
		for _, table := range tables {
			staged := introspect.QuoteIdentifier(StagedName(table))
			live := introspect.QuoteIdentifier(table)
			retiredName := RetiredName(table, runID)

			var stmt string
			if liveSet[table] {
				// Both renames happen in one statement; concurrent readers
				// never observe a missing or half-populated name.
				stmt = "RENAME TABLE " + live + " TO " + introspect.QuoteIdentifier(retiredName) +
					", " + staged + " TO " + live
			} else {
				stmt = "RENAME TABLE " + staged + " TO " + live
			}

			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				swapErr := NewSwapError(table, "atomic rename failed", err).
					WithContext("run_id", runID)
				c.logger.LogTableSwap(table, StagedName(table), retiredName, swapErr)
				return swapErr
			}

			c.logger.LogTableSwap(table, StagedName(table), retiredName, nil)
			swapped = append(swapped, table)
			if liveSet[table] {
				retired = append(retired, retiredName)
			}
		}
		return nil
	})

	return swapped, retired, err
}

// dropStagedTables removes staged tables best-effort; failures are logged as
// cleanup warnings and never re-thrown
func (c *SwapCoordinator) dropStagedTables(ctx context.Context, target *sql.DB, tables []string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, table := range tables {
		staged := StagedName(table)
		if _, err := target.ExecContext(cleanupCtx, "DROP TABLE IF EXISTS "+introspect.QuoteIdentifier(staged)); err != nil {
			warning := NewCleanupWarning(staged, "failed to drop staged table", err)
			c.logger.WithField("table", staged).Error(warning.Error())
		}
	}
}

// dropRetiredTables removes retired tables after a committed swap. A failure
// is reported at error severity with the table name so operators know a stale
// table lingers, but the restore stays successful.
func (c *SwapCoordinator) dropRetiredTables(ctx context.Context, target *sql.DB, retired []string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, name := range retired {
		if _, err := target.ExecContext(cleanupCtx, "DROP TABLE IF EXISTS "+introspect.QuoteIdentifier(name)); err != nil {
			warning := NewCleanupWarning(name, "failed to drop retired table", err)
			c.logger.WithField("table", name).Error(warning.Error())
		}
	}
}

// withForeignKeyChecksDisabled runs fn on a dedicated connection with foreign
// key checks off. Re-enabling is attempted unconditionally: a database left
// with checks permanently disabled is worse than a failed restore.
func withForeignKeyChecksDisabled(ctx context.Context, db *sql.DB, logger *logging.Logger, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return NewSwapError("", "failed to acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return NewSwapError("", "failed to disable foreign key checks", err)
	}

	defer func() {
		enableCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(enableCtx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			logger.WithField("error", err.Error()).Error("Failed to re-enable foreign key checks")
		}
	}()

	return fn(conn)
}

func newRunID() string {
	return uuid.New().String()[:8]
}
