package mirror

import (
	"context"
	"sync"
	"time"

	"mysql-db-mirror/internal/logging"
)

// SchedulerState represents the scheduler lifecycle state
type SchedulerState int

const (
	// SchedulerStopped means no timer is armed
	SchedulerStopped SchedulerState = iota
	// SchedulerRunning means the backup loop is active
	SchedulerRunning
)

// DefaultBackupInterval is the default time between automatic backups
const DefaultBackupInterval = 6 * time.Hour

// freshnessFactor tolerates timer drift: a tick that fires slightly early
// must not double-run a backup that is still fresh
const freshnessFactor = 0.9

// BackupRunner is the slice of the mirror service the scheduler drives
type BackupRunner interface {
	Status(ctx context.Context) (Status, error)
	Backup(ctx context.Context) (bool, error)
	RunInFlight() bool
}

// Scheduler triggers automatic backups on a fixed interval. A single instance
// exists process-wide; its state is explicit rather than captured in closures.
type Scheduler struct {
	service  BackupRunner
	logger   *logging.Logger
	interval time.Duration

	mu    sync.Mutex
	state SchedulerState
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler over the service with the given interval
func NewScheduler(service BackupRunner, logger *logging.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultBackupInterval
	}
	return &Scheduler{
		service:  service,
		logger:   logger,
		interval: interval,
		state:    SchedulerStopped,
	}
}

// Start transitions the scheduler to running, fires one immediate backup
// attempt without blocking, and arms the repeating timer. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerRunning {
		return
	}

	s.state = SchedulerRunning
	s.stop = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.stop)

	s.logger.WithField("interval", s.interval.String()).Info("Backup scheduler started")
}

// Stop cancels the timer and transitions to stopped; idempotent
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == SchedulerStopped {
		s.mu.Unlock()
		return
	}
	s.state = SchedulerStopped
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Backup scheduler stopped")
}

// IsRunning reports whether the backup loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == SchedulerRunning
}

// Interval returns the configured backup interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) run(stop chan struct{}) {
	defer s.wg.Done()

	// Immediate attempt on start, gated the same way as a tick.
	s.attempt()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.attempt()
		case <-stop:
			return
		}
	}
}

// attempt runs one gated backup: skipped when auto-backup is disabled, when
// the last backup is still fresh, or when another run is already in flight
func (s *Scheduler) attempt() {
	ctx := context.Background()

	status, err := s.service.Status(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Scheduler failed to read mirror status")
		return
	}

	if !status.AutoBackupEnabled {
		s.logger.LogSchedulerTick(true, "auto backup disabled")
		return
	}

	if status.LastBackupTime != nil {
		freshness := time.Duration(float64(s.interval) * freshnessFactor)
		if elapsed := time.Since(*status.LastBackupTime); elapsed < freshness {
			s.logger.LogSchedulerTick(true, "last backup still fresh")
			return
		}
	}

	if s.service.RunInFlight() {
		s.logger.LogSchedulerTick(true, "another run already in flight")
		return
	}

	s.logger.LogSchedulerTick(false, "")
	if _, err := s.service.Backup(ctx); err != nil {
		s.logger.WithField("error", err.Error()).Error("Scheduled backup failed")
	}
}
