package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"gorm.io/gorm"
)

// PrivilegedStore accesses quote data without any ownership filter.
// It serves admin operations and agency mutations that the authorization guard has already cleared.
type PrivilegedStore struct {
	db *gorm.DB
}

// NewPrivilegedStore creates a privileged store over the given connection
func NewPrivilegedStore(db *gorm.DB) *PrivilegedStore {
	return &PrivilegedStore{db: db}
}

// Transaction runs fn inside a database transaction with a store bound to it.
// Returning an error from fn rolls back every write made through the bound store.
func (s *PrivilegedStore) Transaction(ctx context.Context, fn func(tx *PrivilegedStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PrivilegedStore{db: tx})
	})
}

// Outbox returns the notification outbox bound to the same connection or transaction
func (s *PrivilegedStore) Outbox() *NotificationOutboxRepository {
	return NewNotificationOutboxRepository(s.db)
}

// GetRequest loads a quote request by id regardless of owner
func (s *PrivilegedStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	var request domain.QuoteRequest
	err := s.db.WithContext(ctx).Preload("Agency").First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListRequests returns quote requests of every agency
func (s *PrivilegedStore) ListRequests(ctx context.Context, filter QuoteRequestFilter) ([]domain.QuoteRequest, int64, error) {
	filter.normalize()

	var requests []domain.QuoteRequest
	var total int64

	query := statusCondition(s.db.WithContext(ctx).Model(&domain.QuoteRequest{}), filter.Status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(filter.Sort, quoteRequestSortFields, "quote_requests.updated_at")
	offset := (filter.Page - 1) * filter.PageSize
	err := query.Preload("Agency").Order(orderClause).Offset(offset).Limit(filter.PageSize).Find(&requests).Error
	return requests, total, err
}

// UpdateStatusWhere moves a request to status only if its stored status is still one of expected.
// Extra columns in patch are written in the same statement. The affected row count is returned;
// zero means another writer changed the request first.
func (s *PrivilegedStore) UpdateStatusWhere(ctx context.Context, id uuid.UUID, expected []domain.QuoteStatus, status domain.QuoteStatus, patch map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range patch {
		updates[k] = v
	}

	result := s.db.WithContext(ctx).
		Model(&domain.QuoteRequest{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// InsertOffer appends an offer
func (s *PrivilegedStore) InsertOffer(ctx context.Context, offer *domain.QuoteOffer) error {
	return s.db.WithContext(ctx).Create(offer).Error
}

// CurrentOffer returns the most recently created offer or gorm.ErrRecordNotFound
func (s *PrivilegedStore) CurrentOffer(ctx context.Context, requestID uuid.UUID) (*domain.QuoteOffer, error) {
	var offer domain.QuoteOffer
	err := s.db.WithContext(ctx).
		Where("quote_request_id = ?", requestID).
		Order("created_at DESC").
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListOffers returns the offer history of a request, newest first
func (s *PrivilegedStore) ListOffers(ctx context.Context, requestID uuid.UUID) ([]domain.QuoteOffer, error) {
	var offers []domain.QuoteOffer
	err := s.db.WithContext(ctx).
		Where("quote_request_id = ?", requestID).
		Order("created_at DESC").
		Find(&offers).Error
	return offers, err
}

// InsertParticipants writes the whole participant batch in one statement
func (s *PrivilegedStore) InsertParticipants(ctx context.Context, participants []domain.QuoteParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&participants).Error
}

// ListParticipants returns the participants of a request in entry order
func (s *PrivilegedStore) ListParticipants(ctx context.Context, requestID uuid.UUID) ([]domain.QuoteParticipant, error) {
	var participants []domain.QuoteParticipant
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("sort_order ASC").
		Find(&participants).Error
	return participants, err
}

// CountParticipants returns how many participants a request has
func (s *PrivilegedStore) CountParticipants(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.QuoteParticipant{}).Where("request_id = ?", requestID).Count(&count).Error
	return count, err
}

// DeleteOrphanParticipants removes participants attached to requests that never reached acceptance.
// Only rows created before cutoff are considered.
func (s *PrivilegedStore) DeleteOrphanParticipants(ctx context.Context, cutoff time.Time) (int64, error) {
	preAcceptance := []domain.QuoteStatus{
		domain.QuoteStatusSent,
		domain.QuoteStatusInReview,
		domain.QuoteStatusOfferSent,
		domain.QuoteStatusOffered,
		domain.QuoteStatusDeclined,
	}
	pending := s.db.Model(&domain.QuoteRequest{}).Select("id").Where("status IN ?", preAcceptance)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND request_id IN (?)", cutoff, pending).
		Delete(&domain.QuoteParticipant{})
	return result.RowsAffected, result.Error
}

// AppendTimeline writes an audit entry
func (s *PrivilegedStore) AppendTimeline(ctx context.Context, entry *domain.QuoteTimelineEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListTimeline returns the audit trail of a request, oldest first
func (s *PrivilegedStore) ListTimeline(ctx context.Context, requestID uuid.UUID) ([]domain.QuoteTimelineEntry, error) {
	var entries []domain.QuoteTimelineEntry
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// InsertPaymentDetails appends a payment details record
func (s *PrivilegedStore) InsertPaymentDetails(ctx context.Context, details *domain.QuotePaymentDetails) error {
	return s.db.WithContext(ctx).Create(details).Error
}

// LatestPaymentDetails returns the most recent payment details or gorm.ErrRecordNotFound
func (s *PrivilegedStore) LatestPaymentDetails(ctx context.Context, requestID uuid.UUID) (*domain.QuotePaymentDetails, error) {
	var details domain.QuotePaymentDetails
	err := s.db.WithContext(ctx).
		Where("quote_request_id = ?", requestID).
		Order("created_at DESC").
		First(&details).Error
	if err != nil {
		return nil, err
	}
	return &details, nil
}
