package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NotificationRetryJobName is the scheduler name of the outbox redelivery job
const NotificationRetryJobName = "notification_retry"

// OutboxDeliverer redelivers queued notifications.
// Implemented by service.NotificationService.
type OutboxDeliverer interface {
	DeliverPending(ctx context.Context, limit int) (sent, failed int, err error)
}

// NotificationRetryJob hands pending and failed outbox messages back to the mail sender.
type NotificationRetryJob struct {
	deliverer OutboxDeliverer
	batchSize int
	logger    *zap.Logger
}

func NewNotificationRetryJob(deliverer OutboxDeliverer, batchSize int, logger *zap.Logger) *NotificationRetryJob {
	return &NotificationRetryJob{
		deliverer: deliverer,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run executes one redelivery pass
func (j *NotificationRetryJob) Run(ctx context.Context) error {
	start := time.Now()
	sent, failed, err := j.deliverer.DeliverPending(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("notification retry: %w", err)
	}

	if sent == 0 && failed == 0 {
		return nil
	}
	j.logger.Info("notification retry job completed",
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
	return nil
}
