package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/mapper"
	"github.com/travelportal/quote-api/internal/notify"
	"github.com/travelportal/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// asyncDeliveryTimeout bounds a post-commit delivery started by DeliverAsync
	asyncDeliveryTimeout = 2 * time.Minute
	// staleClaimAfter is how long a message may stay in processing before it is released
	staleClaimAfter = 15 * time.Minute
)

// NotificationService delivers queued emails from the outbox and exposes them to operators.
// Delivery failures are recorded on the outbox row and never returned to lifecycle callers.
// A message is claimed before it is sent, so the post-commit delivery, the retry job and
// operator retries never send the same row twice.
type NotificationService struct {
	outbox      *repository.NotificationOutboxRepository
	sender      notify.Sender
	maxAttempts int
	logger      *zap.Logger
	inflight    sync.WaitGroup
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	outbox *repository.NotificationOutboxRepository,
	sender notify.Sender,
	maxAttempts int,
	logger *zap.Logger,
) *NotificationService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &NotificationService{
		outbox:      outbox,
		sender:      sender,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Deliver claims each message and attempts it once. Messages already claimed elsewhere
// are skipped and counted in neither total.
func (s *NotificationService) Deliver(ctx context.Context, messages []*domain.NotificationOutbox) (sent, failed int) {
	for _, m := range messages {
		claimed, err := s.outbox.Claim(ctx, m.ID, s.maxAttempts)
		if err != nil {
			s.logger.Error("failed to claim notification",
				zap.String("notificationID", m.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}
		if err := s.deliverClaimed(ctx, m); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// DeliverAsync delivers messages in the background with its own deadline, detached from
// the caller's cancellation. Wait blocks until every background delivery has finished.
func (s *NotificationService) DeliverAsync(ctx context.Context, messages []*domain.NotificationOutbox) {
	if len(messages) == 0 {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncDeliveryTimeout)
		defer cancel()
		s.Deliver(deliverCtx, messages)
	}()
}

// Wait blocks until background deliveries started by DeliverAsync complete
func (s *NotificationService) Wait() {
	s.inflight.Wait()
}

// DeliverPending releases stale claims, then claims and retries pending and failed
// messages that still have attempts left
func (s *NotificationService) DeliverPending(ctx context.Context, limit int) (sent, failed int, err error) {
	released, err := s.outbox.ReleaseStale(ctx, time.Now().UTC().Add(-staleClaimAfter), s.maxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to release stale notifications: %w", err)
	}
	if released > 0 {
		s.logger.Warn("released stale notification claims", zap.Int64("count", released))
	}

	messages, err := s.outbox.ClaimDeliverable(ctx, s.maxAttempts, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to claim deliverable notifications: %w", err)
	}
	for i := range messages {
		if err := s.deliverClaimed(ctx, &messages[i]); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed, nil
}

// deliverClaimed sends a message this worker holds in processing and records the outcome
func (s *NotificationService) deliverClaimed(ctx context.Context, m *domain.NotificationOutbox) error {
	to := notify.Recipient{Email: m.RecipientEmail, Name: m.RecipientName}
	sendErr := s.sender.Send(ctx, to, m.Subject, m.Body)
	if sendErr != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("notificationID", m.ID.String()),
			zap.String("kind", string(m.Kind)),
			zap.String("recipient", m.RecipientEmail),
			zap.Int("attempt", m.Attempts+1),
			zap.Error(sendErr),
		)
		if err := s.outbox.MarkFailed(ctx, m.ID, sendErr.Error(), s.maxAttempts); err != nil {
			s.logger.Error("failed to record notification failure",
				zap.String("notificationID", m.ID.String()),
				zap.Error(err),
			)
		}
		return sendErr
	}

	if err := s.outbox.MarkSent(ctx, m.ID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to record notification delivery",
			zap.String("notificationID", m.ID.String()),
			zap.Error(err),
		)
	}
	s.logger.Debug("notification delivered",
		zap.String("notificationID", m.ID.String()),
		zap.String("kind", string(m.Kind)),
	)
	return nil
}

// List returns outbox messages for operators
func (s *NotificationService) List(ctx context.Context, status *domain.OutboxStatus, page, pageSize int) (*domain.PaginatedResponse, error) {
	if status != nil && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown notification status %q", ErrInvalidInput, *status)
	}

	messages, total, err := s.outbox.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, storeErr("list notifications", err)
	}

	dtos := make([]domain.NotificationOutboxDTO, 0, len(messages))
	for i := range messages {
		dtos = append(dtos, mapper.ToNotificationOutboxDTO(&messages[i]))
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Retry requeues a failed or abandoned message and attempts delivery immediately.
// The returned DTO reflects the outcome of that attempt.
func (s *NotificationService) Retry(ctx context.Context, id uuid.UUID) (*domain.NotificationOutboxDTO, error) {
	if _, err := s.outbox.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, storeErr("get notification", err)
	}

	affected, err := s.outbox.ResetForRetry(ctx, id)
	if err != nil {
		return nil, storeErr("reset notification", err)
	}
	if affected == 0 {
		return nil, ErrNotificationNotRetryable
	}

	claimed, err := s.outbox.Claim(ctx, id, s.maxAttempts)
	if err != nil {
		return nil, storeErr("claim notification", err)
	}
	if claimed {
		message, err := s.outbox.GetByID(ctx, id)
		if err != nil {
			return nil, storeErr("reload notification", err)
		}
		_ = s.deliverClaimed(ctx, message)
	}

	message, err := s.outbox.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("reload notification", err)
	}
	dto := mapper.ToNotificationOutboxDTO(message)
	return &dto, nil
}

// paginated builds the list envelope used by list endpoints
func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
