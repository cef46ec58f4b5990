package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDeliverer struct {
	calls int
	limit int
	err   error
}

func (f *fakeDeliverer) DeliverPending(ctx context.Context, limit int) (int, int, error) {
	f.calls++
	f.limit = limit
	if _, ok := ctx.Deadline(); !ok {
		return 0, 0, errors.New("missing deadline")
	}
	return 3, 1, f.err
}

type fakeOrphanStore struct {
	cutoff time.Time
	err    error
}

func (f *fakeOrphanStore) DeleteOrphanParticipants(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, f.err
}

func noop(context.Context) error { return nil }

func TestScheduler_AddRemoveJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob(NotificationRetryJobName, "0 */5 * * * *", time.Minute, JobFunc(noop)))
	require.NoError(t, s.AddJob(ParticipantCleanupJobName, "@every 1h", 0, JobFunc(noop)))
	assert.Error(t, s.AddJob(NotificationRetryJobName, "0 * * * * *", time.Minute, JobFunc(noop)))
	assert.Error(t, s.AddJob("broken", "not a cron", time.Minute, JobFunc(noop)))

	assert.Equal(t, []string{NotificationRetryJobName, ParticipantCleanupJobName}, s.JobNames())

	require.NoError(t, s.RemoveJob(NotificationRetryJobName))
	assert.Error(t, s.RemoveJob(NotificationRetryJobName))
	assert.Error(t, s.RunNow(NotificationRetryJobName))
	assert.Equal(t, []string{ParticipantCleanupJobName}, s.JobNames())

	s.Start()
	<-s.Stop().Done()
}

func TestScheduler_RunNowSkipsOverlappingRuns(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	entered := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32
	var hadDeadline atomic.Bool

	require.NoError(t, s.AddJob(NotificationRetryJobName, "@every 1h", time.Minute, JobFunc(func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(entered)
		}
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		<-release
		return nil
	})))

	require.NoError(t, s.RunNow(NotificationRetryJobName))
	<-entered
	assert.ErrorIs(t, s.RunNow(NotificationRetryJobName), ErrJobRunning)

	close(release)
	<-s.Stop().Done()
	assert.Equal(t, int32(1), runs.Load())
	assert.True(t, hadDeadline.Load())

	// the guard is released once the run returns
	require.NoError(t, s.RunNow(NotificationRetryJobName))
	<-s.Stop().Done()
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_RecoversPanickingJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	var runs atomic.Int32
	require.NoError(t, s.AddJob("flaky", "@every 1h", time.Minute, JobFunc(func(context.Context) error {
		runs.Add(1)
		panic("boom")
	})))

	require.NoError(t, s.RunNow("flaky"))
	<-s.Stop().Done()
	require.NoError(t, s.RunNow("flaky"))
	<-s.Stop().Done()
	assert.Equal(t, int32(2), runs.Load())
}

func TestNotificationRetryJob_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deliverer := &fakeDeliverer{}
	require.NoError(t, NewNotificationRetryJob(deliverer, 25, zap.NewNop()).Run(ctx))
	assert.Equal(t, 1, deliverer.calls)
	assert.Equal(t, 25, deliverer.limit)

	failing := &fakeDeliverer{err: errors.New("db down")}
	err := NewNotificationRetryJob(failing, 10, zap.NewNop()).Run(ctx)
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, 1, failing.calls)
}

func TestNotificationRetryJob_ThroughScheduler(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	deliverer := &fakeDeliverer{}
	require.NoError(t, s.AddJob(NotificationRetryJobName, "@every 1h", time.Minute, NewNotificationRetryJob(deliverer, 50, zap.NewNop())))

	require.NoError(t, s.RunNow(NotificationRetryJobName))
	<-s.Stop().Done()
	assert.Equal(t, 1, deliverer.calls)
	assert.Equal(t, 50, deliverer.limit)
}

func TestParticipantCleanupJob_Run(t *testing.T) {
	store := &fakeOrphanStore{}
	job := NewParticipantCleanupJob(store, DefaultOrphanGracePeriod, zap.NewNop())
	fixed := time.Date(2026, 10, 15, 3, 30, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixed.Add(-24*time.Hour), store.cutoff)

	store.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
