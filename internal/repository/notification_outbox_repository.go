package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"gorm.io/gorm"
)

var claimableStatuses = []domain.OutboxStatus{domain.OutboxStatusPending, domain.OutboxStatusFailed}

type NotificationOutboxRepository struct {
	db *gorm.DB
}

func NewNotificationOutboxRepository(db *gorm.DB) *NotificationOutboxRepository {
	return &NotificationOutboxRepository{db: db}
}

// Enqueue stores rendered messages as pending
func (r *NotificationOutboxRepository) Enqueue(ctx context.Context, messages []*domain.NotificationOutbox) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		m.Status = domain.OutboxStatusPending
	}
	return r.db.WithContext(ctx).Create(&messages).Error
}

func (r *NotificationOutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.NotificationOutbox, error) {
	var message domain.NotificationOutbox
	err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// List returns outbox messages, newest first, optionally filtered by status
func (r *NotificationOutboxRepository) List(ctx context.Context, status *domain.OutboxStatus, page, pageSize int) ([]domain.NotificationOutbox, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var messages []domain.NotificationOutbox
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.NotificationOutbox{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&messages).Error
	return messages, total, err
}

// ClaimDeliverable claims up to limit pending or failed messages that still have attempts left,
// oldest first. Only the rows this call moved to processing are returned.
func (r *NotificationOutboxRepository) ClaimDeliverable(ctx context.Context, maxAttempts, limit int) ([]domain.NotificationOutbox, error) {
	if limit < 1 {
		limit = 50
	}

	var candidates []domain.NotificationOutbox
	err := r.db.WithContext(ctx).
		Where("status IN ? AND attempts < ?", claimableStatuses, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.NotificationOutbox, 0, len(candidates))
	for _, m := range candidates {
		ok, err := r.Claim(ctx, m.ID, maxAttempts)
		if err != nil {
			return claimed, err
		}
		if !ok {
			continue
		}
		m.Status = domain.OutboxStatusProcessing
		claimed = append(claimed, m)
	}
	return claimed, nil
}

// Claim moves one message to processing. It reports false when another worker
// already holds it, it was delivered, or it ran out of attempts.
func (r *NotificationOutboxRepository) Claim(ctx context.Context, id uuid.UUID, maxAttempts int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.NotificationOutbox{}).
		Where("id = ? AND status IN ? AND attempts < ?", id, claimableStatuses, maxAttempts).
		Updates(map[string]interface{}{
			"status":     domain.OutboxStatusProcessing,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseStale fails messages left in processing since before cutoff, for example by a
// worker that stopped mid-send. The interrupted send counts as an attempt.
func (r *NotificationOutboxRepository) ReleaseStale(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.NotificationOutbox{}).
		Where("status = ? AND updated_at < ?", domain.OutboxStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, domain.OutboxStatusAbandoned, domain.OutboxStatusFailed),
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "delivery interrupted",
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// MarkSent records a successful delivery of a claimed message
func (r *NotificationOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.NotificationOutbox{}).
		Where("id = ? AND status = ?", id, domain.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status":     domain.OutboxStatusSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": nil,
			"sent_at":    at,
			"updated_at": at,
		}).Error
}

// MarkFailed records a failed delivery of a claimed message. The message is abandoned once
// the attempt count reaches maxAttempts.
func (r *NotificationOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) error {
	return r.db.WithContext(ctx).
		Model(&domain.NotificationOutbox{}).
		Where("id = ? AND status = ?", id, domain.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, domain.OutboxStatusAbandoned, domain.OutboxStatusFailed),
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ResetForRetry puts a failed or abandoned message back in the queue with a fresh attempt budget
func (r *NotificationOutboxRepository) ResetForRetry(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.NotificationOutbox{}).
		Where("id = ? AND status IN ?", id, []domain.OutboxStatus{domain.OutboxStatusFailed, domain.OutboxStatusAbandoned}).
		Updates(map[string]interface{}{
			"status":     domain.OutboxStatusPending,
			"attempts":   0,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
