package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AgencyGuard decides whether a principal may act on a quote request.
// It fails closed: anything other than a single matching agency owning the request is refused.
type AgencyGuard struct {
	agencyRepo *repository.AgencyRepository
	store      *repository.PrivilegedStore
	logger     *zap.Logger
}

// NewAgencyGuard creates a new AgencyGuard
func NewAgencyGuard(agencyRepo *repository.AgencyRepository, store *repository.PrivilegedStore, logger *zap.Logger) *AgencyGuard {
	return &AgencyGuard{
		agencyRepo: agencyRepo,
		store:      store,
		logger:     logger,
	}
}

// ResolveAgency maps an agency principal to its agency record
func (g *AgencyGuard) ResolveAgency(ctx context.Context, principal *auth.Principal) (*domain.Agency, error) {
	if principal == nil || principal.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if !principal.IsAgency() {
		return nil, ErrForbidden
	}

	agencies, err := g.agencyRepo.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, storeErr("resolve agency", err)
	}
	switch len(agencies) {
	case 0:
		return nil, ErrNoAgency
	case 1:
		return &agencies[0], nil
	default:
		g.logger.Error("principal mapped to more than one agency",
			zap.String("userID", principal.UserID),
		)
		return nil, ErrForbidden
	}
}

// Authorize confirms that the principal's agency owns the quote request and returns the agency.
// A missing request and a request of another agency both yield an error that the
// boundary renders identically. Call it again at mutation time rather than caching the result.
func (g *AgencyGuard) Authorize(ctx context.Context, principal *auth.Principal, quoteRequestID uuid.UUID) (*domain.Agency, error) {
	agency, err := g.ResolveAgency(ctx, principal)
	if err != nil {
		return nil, err
	}

	request, err := g.store.GetRequest(ctx, quoteRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, storeErr("load quote request", err)
	}

	if request.AgencyID != agency.ID {
		g.logger.Warn("agency attempted to access a quote request it does not own",
			zap.String("userID", principal.UserID),
			zap.String("agencyID", agency.ID.String()),
			zap.String("quoteRequestID", quoteRequestID.String()),
		)
		return nil, ErrForbidden
	}

	return agency, nil
}
