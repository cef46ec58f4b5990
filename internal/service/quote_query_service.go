package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/mapper"
	"github.com/travelportal/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuoteQueryService serves the read models of quote requests.
// Agency reads go through a ScopedStore bound to the caller's agency, admin reads through the PrivilegedStore.
type QuoteQueryService struct {
	db     *gorm.DB
	store  *repository.PrivilegedStore
	guard  *AgencyGuard
	logger *zap.Logger
}

// NewQuoteQueryService creates a new QuoteQueryService
func NewQuoteQueryService(db *gorm.DB, store *repository.PrivilegedStore, guard *AgencyGuard, logger *zap.Logger) *QuoteQueryService {
	return &QuoteQueryService{
		db:     db,
		store:  store,
		guard:  guard,
		logger: logger,
	}
}

// ListForAgency lists the caller's own quote requests
func (s *QuoteQueryService) ListForAgency(ctx context.Context, principal *auth.Principal, filter repository.QuoteRequestFilter) (*domain.PaginatedResponse, error) {
	agency, err := s.guard.ResolveAgency(ctx, principal)
	if err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidInput
	}

	scoped := repository.NewScopedStore(s.db, agency.ID)
	requests, total, err := scoped.ListRequests(ctx, filter)
	if err != nil {
		return nil, storeErr("list quote requests", err)
	}

	dtos := make([]domain.QuoteRequestDTO, 0, len(requests))
	for i := range requests {
		dto := mapper.ToQuoteRequestDTO(&requests[i])
		dto.AgencyName = agency.BusinessName
		dtos = append(dtos, dto)
	}
	return paginated(dtos, total, filter.Page, filter.PageSize), nil
}

// GetForAgency returns one owned request with its current offer, participants, payment details and timeline
func (s *QuoteQueryService) GetForAgency(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*domain.QuoteRequestDetailDTO, error) {
	agency, err := s.guard.Authorize(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	scoped := repository.NewScopedStore(s.db, agency.ID)
	request, err := scoped.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, storeErr("load quote request", err)
	}

	detail := &domain.QuoteRequestDetailDTO{QuoteRequestDTO: mapper.ToQuoteRequestDTO(request)}
	detail.AgencyName = agency.BusinessName
	now := time.Now().UTC()

	offer, err := scoped.CurrentOffer(ctx, id)
	switch {
	case err == nil:
		dto := mapper.ToQuoteOfferDTO(offer, now)
		detail.CurrentOffer = &dto
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeErr("load current offer", err)
	}

	participants, err := scoped.ListParticipants(ctx, id)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	detail.Participants = mapper.ToQuoteParticipantDTOs(participants)

	timeline, err := scoped.ListTimeline(ctx, id)
	if err != nil {
		return nil, storeErr("list timeline", err)
	}
	detail.Timeline = mapper.ToQuoteTimelineDTOs(timeline)

	payment, err := scoped.LatestPaymentDetails(ctx, id)
	switch {
	case err == nil:
		dto := mapper.ToQuotePaymentDetailsDTO(payment)
		detail.PaymentDetails = &dto
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeErr("load payment details", err)
	}

	return detail, nil
}

// ListForAdmin lists requests of every agency
func (s *QuoteQueryService) ListForAdmin(ctx context.Context, principal *auth.Principal, filter repository.QuoteRequestFilter) (*domain.PaginatedResponse, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidInput
	}

	requests, total, err := s.store.ListRequests(ctx, filter)
	if err != nil {
		return nil, storeErr("list quote requests", err)
	}

	dtos := make([]domain.QuoteRequestDTO, 0, len(requests))
	for i := range requests {
		dtos = append(dtos, mapper.ToQuoteRequestDTO(&requests[i]))
	}
	return paginated(dtos, total, filter.Page, filter.PageSize), nil
}

// GetForAdmin returns one request with the full offer history
func (s *QuoteQueryService) GetForAdmin(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*domain.QuoteRequestDetailDTO, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, storeErr("load quote request", err)
	}

	detail := &domain.QuoteRequestDetailDTO{QuoteRequestDTO: mapper.ToQuoteRequestDTO(request)}
	now := time.Now().UTC()

	offers, err := s.store.ListOffers(ctx, id)
	if err != nil {
		return nil, storeErr("list offers", err)
	}
	detail.Offers = make([]domain.QuoteOfferDTO, 0, len(offers))
	for i := range offers {
		detail.Offers = append(detail.Offers, mapper.ToQuoteOfferDTO(&offers[i], now))
	}
	if len(detail.Offers) > 0 {
		current := detail.Offers[0]
		detail.CurrentOffer = &current
	}

	participants, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return nil, storeErr("list participants", err)
	}
	detail.Participants = mapper.ToQuoteParticipantDTOs(participants)

	timeline, err := s.store.ListTimeline(ctx, id)
	if err != nil {
		return nil, storeErr("list timeline", err)
	}
	detail.Timeline = mapper.ToQuoteTimelineDTOs(timeline)

	payment, err := s.store.LatestPaymentDetails(ctx, id)
	switch {
	case err == nil:
		dto := mapper.ToQuotePaymentDetailsDTO(payment)
		detail.PaymentDetails = &dto
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storeErr("load payment details", err)
	}

	return detail, nil
}
