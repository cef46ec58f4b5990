package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"gorm.io/gorm"
)

// ScopedStore reads quote data on behalf of one agency.
// Every query is filtered by the agency id, so rows of other agencies behave as missing.
type ScopedStore struct {
	db       *gorm.DB
	agencyID uuid.UUID
}

// NewScopedStore returns a store bound to the given agency
func NewScopedStore(db *gorm.DB, agencyID uuid.UUID) *ScopedStore {
	return &ScopedStore{db: db, agencyID: agencyID}
}

// AgencyID returns the agency the store is bound to
func (s *ScopedStore) AgencyID() uuid.UUID {
	return s.agencyID
}

func (s *ScopedStore) requests(ctx context.Context) *gorm.DB {
	return ApplyAgencyScope(s.db.WithContext(ctx).Model(&domain.QuoteRequest{}), s.agencyID, "quote_requests.agency_id")
}

// ListRequests returns the agency's quote requests, newest first by default
func (s *ScopedStore) ListRequests(ctx context.Context, filter QuoteRequestFilter) ([]domain.QuoteRequest, int64, error) {
	filter.normalize()

	var requests []domain.QuoteRequest
	var total int64

	query := statusCondition(s.requests(ctx), filter.Status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(filter.Sort, quoteRequestSortFields, "quote_requests.updated_at")
	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order(orderClause).Offset(offset).Limit(filter.PageSize).Find(&requests).Error
	return requests, total, err
}

// GetRequest returns one of the agency's requests or gorm.ErrRecordNotFound
func (s *ScopedStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	var request domain.QuoteRequest
	err := s.requests(ctx).Where("quote_requests.id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// CurrentOffer returns the most recent offer of an owned request or gorm.ErrRecordNotFound
func (s *ScopedStore) CurrentOffer(ctx context.Context, requestID uuid.UUID) (*domain.QuoteOffer, error) {
	var offer domain.QuoteOffer
	err := s.db.WithContext(ctx).
		Where("quote_request_id = ? AND quote_request_id IN (?)", requestID, ownedRequestIDs(s.db, s.agencyID)).
		Order("created_at DESC").
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListParticipants returns the participants of an owned request in entry order
func (s *ScopedStore) ListParticipants(ctx context.Context, requestID uuid.UUID) ([]domain.QuoteParticipant, error) {
	var participants []domain.QuoteParticipant
	err := s.db.WithContext(ctx).
		Where("request_id = ? AND request_id IN (?)", requestID, ownedRequestIDs(s.db, s.agencyID)).
		Order("sort_order ASC").
		Find(&participants).Error
	return participants, err
}

// ListTimeline returns the audit trail of an owned request, oldest first
func (s *ScopedStore) ListTimeline(ctx context.Context, requestID uuid.UUID) ([]domain.QuoteTimelineEntry, error) {
	var entries []domain.QuoteTimelineEntry
	err := s.db.WithContext(ctx).
		Where("request_id = ? AND request_id IN (?)", requestID, ownedRequestIDs(s.db, s.agencyID)).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// LatestPaymentDetails returns the most recent payment details of an owned request or gorm.ErrRecordNotFound
func (s *ScopedStore) LatestPaymentDetails(ctx context.Context, requestID uuid.UUID) (*domain.QuotePaymentDetails, error) {
	var details domain.QuotePaymentDetails
	err := s.db.WithContext(ctx).
		Where("quote_request_id = ? AND quote_request_id IN (?)", requestID, ownedRequestIDs(s.db, s.agencyID)).
		Order("created_at DESC").
		First(&details).Error
	if err != nil {
		return nil, err
	}
	return &details, nil
}
