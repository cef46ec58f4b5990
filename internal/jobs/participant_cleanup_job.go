package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ParticipantCleanupJobName is the scheduler name of the orphan participant sweep
const ParticipantCleanupJobName = "participant_cleanup"

// DefaultOrphanGracePeriod is how old a participant row on a non-accepted request must be before removal
const DefaultOrphanGracePeriod = 24 * time.Hour

// OrphanParticipantStore removes participant rows whose request never reached acceptance.
// Implemented by repository.PrivilegedStore.
type OrphanParticipantStore interface {
	DeleteOrphanParticipants(ctx context.Context, cutoff time.Time) (int64, error)
}

// ParticipantCleanupJob sweeps participant rows left by acceptances written before
// participants and status shared a transaction, or inserted by manual back-office fixes.
type ParticipantCleanupJob struct {
	store  OrphanParticipantStore
	grace  time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewParticipantCleanupJob(store OrphanParticipantStore, grace time.Duration, logger *zap.Logger) *ParticipantCleanupJob {
	return &ParticipantCleanupJob{
		store:  store,
		grace:  grace,
		now:    time.Now,
		logger: logger,
	}
}

// Run executes one sweep
func (j *ParticipantCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	removed, err := j.store.DeleteOrphanParticipants(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("participant cleanup: %w", err)
	}
	if removed > 0 {
		j.logger.Warn("removed orphan participants",
			zap.Int64("count", removed),
			zap.Time("cutoff", cutoff))
	}
	return nil
}
