package mirror

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner stands in for the mirror service so scheduler gating can be
// observed without a database.
type fakeRunner struct {
	status    Status
	statusErr error
	inFlight  bool

	backups atomic.Int64
	ran     chan struct{}
}

func newFakeRunner(status Status) *fakeRunner {
	return &fakeRunner{status: status, ran: make(chan struct{}, 16)}
}

func (f *fakeRunner) Status(ctx context.Context) (Status, error) {
	return f.status, f.statusErr
}

func (f *fakeRunner) Backup(ctx context.Context) (bool, error) {
	f.backups.Add(1)
	select {
	case f.ran <- struct{}{}:
	default:
	}
	return true, nil
}

func (f *fakeRunner) RunInFlight() bool {
	return f.inFlight
}

func waitForBackup(t *testing.T, runner *fakeRunner) {
	t.Helper()
	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a scheduled backup")
	}
}

func TestScheduler_BacksUpImmediatelyWhenNeverBackedUp(t *testing.T) {
	// Enabled and never backed up: the start-time attempt must fire a backup
	// without waiting a full interval.
	runner := newFakeRunner(Status{AutoBackupEnabled: true})
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	waitForBackup(t, runner)
	scheduler.Stop()

	assert.Equal(t, int64(1), runner.backups.Load())
}

func TestScheduler_SkipsWhenDisabled(t *testing.T) {
	runner := newFakeRunner(Status{AutoBackupEnabled: false})
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Zero(t, runner.backups.Load())
}

func TestScheduler_SkipsWhenLastBackupFresh(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	runner := newFakeRunner(Status{AutoBackupEnabled: true, LastBackupTime: &recent})
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Zero(t, runner.backups.Load())
}

func TestScheduler_BacksUpWhenLastBackupStale(t *testing.T) {
	// 55 minutes on a one-hour interval is past the 90% freshness gate.
	stale := time.Now().Add(-55 * time.Minute)
	runner := newFakeRunner(Status{AutoBackupEnabled: true, LastBackupTime: &stale})
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	waitForBackup(t, runner)
	scheduler.Stop()

	assert.Equal(t, int64(1), runner.backups.Load())
}

func TestScheduler_SkipsWhenRunInFlight(t *testing.T) {
	runner := newFakeRunner(Status{AutoBackupEnabled: true})
	runner.inFlight = true
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Zero(t, runner.backups.Load())
}

func TestScheduler_StatusErrorSkipsAttempt(t *testing.T) {
	runner := newFakeRunner(Status{AutoBackupEnabled: true})
	runner.statusErr = errors.New("status table unreachable")
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	scheduler.Start()
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Zero(t, runner.backups.Load())
}

func TestScheduler_Lifecycle(t *testing.T) {
	runner := newFakeRunner(Status{})
	scheduler := NewScheduler(runner, quietLogger(), time.Hour)

	require.False(t, scheduler.IsRunning())

	scheduler.Start()
	assert.True(t, scheduler.IsRunning())

	// Starting twice must not double the loop.
	scheduler.Start()
	assert.True(t, scheduler.IsRunning())

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())

	// Stop is idempotent.
	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
}

func TestScheduler_DefaultInterval(t *testing.T) {
	runner := newFakeRunner(Status{})
	scheduler := NewScheduler(runner, quietLogger(), 0)
	assert.Equal(t, DefaultBackupInterval, scheduler.Interval())
}
