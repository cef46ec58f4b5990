package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/notify"
	"github.com/travelportal/quote-api/internal/repository"
	"github.com/travelportal/quote-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContractUpload is an optional contract document sent along with payment details
type ContractUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// QuoteLifecycleService drives a quote request through its state machine.
//
// Every transition is a single transaction made of optional inserts, a conditional
// status update, one timeline entry and the outbox rows for its emails. The status
// update only matches the statuses the transition may leave, normally the status read
// before the transaction, so a concurrent writer makes the transition fail with
// ErrConflict and rolls back the inserts. Emails are delivered in the background after
// commit and their outcome never changes the result.
type QuoteLifecycleService struct {
	store         *repository.PrivilegedStore
	guard         *AgencyGuard
	participants  *ParticipantValidator
	timeline      *TimelineLogger
	composer      *notify.Composer
	notifications *NotificationService
	documents     storage.Storage
	validate      *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewQuoteLifecycleService creates a new QuoteLifecycleService
func NewQuoteLifecycleService(
	store *repository.PrivilegedStore,
	guard *AgencyGuard,
	composer *notify.Composer,
	notifications *NotificationService,
	documents storage.Storage,
	logger *zap.Logger,
) *QuoteLifecycleService {
	now := func() time.Time { return time.Now().UTC() }
	return &QuoteLifecycleService{
		store:         store,
		guard:         guard,
		participants:  NewParticipantValidator(),
		timeline:      NewTimelineLogger(now),
		composer:      composer,
		notifications: notifications,
		documents:     documents,
		validate:      validator.New(),
		logger:        logger,
		now:           now,
	}
}

// transition describes one state change and everything written with it
type transition struct {
	from     []domain.QuoteStatus
	to       domain.QuoteStatus
	patch    map[string]interface{}
	action   string
	details  *string
	actor    domain.TimelineActor
	actorID  string
	// writes runs inside the transaction before the status update
	writes   func(tx *repository.PrivilegedStore) error
	messages []notify.Message
}

func (s *QuoteLifecycleService) apply(ctx context.Context, request *domain.QuoteRequest, t transition) error {
	var queued []*domain.NotificationOutbox

	err := s.store.Transaction(ctx, func(tx *repository.PrivilegedStore) error {
		if t.writes != nil {
			if err := t.writes(tx); err != nil {
				return err
			}
		}

		affected, err := tx.UpdateStatusWhere(ctx, request.ID, t.from, t.to, t.patch)
		if err != nil {
			return storeErr("update quote status", err)
		}
		if affected == 0 {
			return ErrConflict
		}

		if err := s.timeline.Append(ctx, tx, request.ID, t.action, t.details, t.actor, t.actorID); err != nil {
			return err
		}

		queued = outboxRows(request.ID, t.messages)
		if err := tx.Outbox().Enqueue(ctx, queued); err != nil {
			return storeErr("enqueue notifications", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.logger.Info("quote transition lost a concurrent update",
				zap.String("quoteRequestID", request.ID.String()),
				zap.String("from", string(request.Status)),
				zap.String("to", string(t.to)),
			)
		}
		return err
	}

	s.logger.Info("quote request transitioned",
		zap.String("quoteRequestID", request.ID.String()),
		zap.String("from", string(request.Status)),
		zap.String("to", string(t.to)),
		zap.String("actor", string(t.actor)),
		zap.String("actorID", t.actorID),
	)

	if len(queued) > 0 && s.notifications != nil {
		s.notifications.DeliverAsync(ctx, queued)
	}
	return nil
}

func outboxRows(requestID uuid.UUID, messages []notify.Message) []*domain.NotificationOutbox {
	rows := make([]*domain.NotificationOutbox, 0, len(messages))
	for _, m := range messages {
		id := requestID
		rows = append(rows, &domain.NotificationOutbox{
			QuoteRequestID: &id,
			Kind:           m.Kind,
			RecipientEmail: m.To.Email,
			RecipientName:  m.To.Name,
			Subject:        m.Subject,
			Body:           m.Body,
		})
	}
	return rows
}

// collect keeps successfully rendered messages. Rendering failures are logged and dropped.
func (s *QuoteLifecycleService) collect(requestID uuid.UUID, renders ...func() (notify.Message, error)) []notify.Message {
	messages := make([]notify.Message, 0, len(renders))
	for _, render := range renders {
		m, err := render()
		if err != nil {
			s.logger.Warn("failed to render notification",
				zap.String("quoteRequestID", requestID.String()),
				zap.Error(err),
			)
			continue
		}
		if m.To.Email == "" {
			s.logger.Warn("notification has no recipient address",
				zap.String("quoteRequestID", requestID.String()),
				zap.String("kind", string(m.Kind)),
			)
			continue
		}
		messages = append(messages, m)
	}
	return messages
}

func (s *QuoteLifecycleService) loadRequest(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, storeErr("load quote request", err)
	}
	return request, nil
}

// loadForAdmin checks the admin role and loads the request
func (s *QuoteLifecycleService) loadForAdmin(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*domain.QuoteRequest, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.loadRequest(ctx, id)
}

func requireAdmin(principal *auth.Principal) error {
	if principal == nil || principal.UserID == "" {
		return ErrUnauthenticated
	}
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func isOfferOpen(status domain.QuoteStatus) bool {
	return status.Canonical() == domain.QuoteStatusOfferSent
}

func statusIn(status domain.QuoteStatus, allowed ...domain.QuoteStatus) bool {
	for _, a := range allowed {
		if status == a {
			return true
		}
	}
	return false
}

func strPtr(s string) *string {
	return &s
}

// ============================================================================
// Agency operations
// ============================================================================

// AcceptOffer registers the participants and accepts the current offer.
// Participants and the status change are committed together; nothing is written on failure.
func (s *QuoteLifecycleService) AcceptOffer(ctx context.Context, principal *auth.Principal, id uuid.UUID, rows []domain.ParticipantInput) error {
	agency, err := s.guard.Authorize(ctx, principal, id)
	if err != nil {
		return err
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return err
	}
	if request.AgencyID != agency.ID {
		return ErrForbidden
	}

	if !isOfferOpen(request.Status) {
		return ErrInvalidState
	}

	offer, err := s.store.CurrentOffer(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotFound
		}
		return storeErr("load current offer", err)
	}
	if offer.IsExpired(s.now()) {
		return ErrOfferExpired
	}

	validated, err := s.participants.Validate(rows)
	if err != nil {
		return err
	}

	createdAt := s.now()
	participants := make([]domain.QuoteParticipant, 0, len(validated))
	names := make([]string, 0, len(validated))
	for _, p := range validated {
		participants = append(participants, domain.QuoteParticipant{
			RequestID:      id,
			FullName:       p.FullName,
			DocumentType:   p.DocumentType,
			DocumentNumber: p.DocumentNumber,
			IsChild:        p.IsChild,
			SortOrder:      p.SortOrder,
			CreatedAt:      createdAt,
		})
		names = append(names, p.FullName)
	}

	adults, children := CountAges(validated)
	details := fmt.Sprintf("%d partecipanti registrati (%d adulti, %d bambini)", len(validated), adults, children)

	messages := s.collect(id,
		func() (notify.Message, error) {
			return s.composer.OfferAccepted(request, agency, names, adults, children)
		},
		func() (notify.Message, error) {
			return s.composer.OfferAcceptedAdmin(request, agency, names, adults, children)
		},
	)

	return s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusAccepted,
		action:   ActionOfferAccepted,
		details:  &details,
		actor:    domain.TimelineActorAgency,
		actorID:  principal.UserID,
		writes: func(tx *repository.PrivilegedStore) error {
			if err := tx.InsertParticipants(ctx, participants); err != nil {
				return storeErr("insert participants", err)
			}
			return nil
		},
		messages: messages,
	})
}

// DeclineOffer declines the current offer with an optional motivation.
// The motivation is stored verbatim on the request and the timeline entry and sent to the operator.
func (s *QuoteLifecycleService) DeclineOffer(ctx context.Context, principal *auth.Principal, id uuid.UUID, motivation *string) error {
	agency, err := s.guard.Authorize(ctx, principal, id)
	if err != nil {
		return err
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return err
	}
	if request.AgencyID != agency.ID {
		return ErrForbidden
	}

	if !isOfferOpen(request.Status) {
		return ErrInvalidState
	}

	if motivation != nil && strings.TrimSpace(*motivation) == "" {
		motivation = nil
	}

	var reason interface{}
	if motivation != nil {
		reason = *motivation
	}

	messages := s.collect(id, func() (notify.Message, error) {
		return s.composer.OfferDeclinedAdmin(request, agency, motivation)
	})

	return s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusDeclined,
		patch:    map[string]interface{}{"decline_reason": reason},
		action:   ActionOfferDeclined,
		details:  motivation,
		actor:    domain.TimelineActorAgency,
		actorID:  principal.UserID,
		messages: messages,
	})
}

// ============================================================================
// Admin operations
// ============================================================================

// StartReview moves a newly submitted request into review
func (s *QuoteLifecycleService) StartReview(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return err
	}
	if request.Status != domain.QuoteStatusSent {
		return ErrInvalidState
	}

	return s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusInReview,
		action:   ActionReviewStarted,
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
	})
}

// MakeOffer appends a new offer and sends it to the agency.
// A declined request may receive a new offer; the newest offer is always the current one.
func (s *QuoteLifecycleService) MakeOffer(ctx context.Context, principal *auth.Principal, id uuid.UUID, req *domain.MakeOfferRequest) (*domain.QuoteOffer, error) {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(request.Status, domain.QuoteStatusSent, domain.QuoteStatusInReview, domain.QuoteStatusDeclined) {
		return nil, ErrInvalidState
	}

	offer, err := s.buildOffer(principal, id, req)
	if err != nil {
		return nil, err
	}

	details := "Prezzo: " + notify.FormatPrice(offer.TotalPrice, offer.PriceOnRequest, offer.Currency)
	if offer.OfferExpiry != nil {
		details += ", valida fino al " + offer.OfferExpiry.Format("02/01/2006")
	}

	var messages []notify.Message
	if request.Agency != nil {
		messages = s.collect(id, func() (notify.Message, error) {
			return s.composer.OfferSent(request, request.Agency, offer)
		})
	}

	err = s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusOfferSent,
		action:   ActionOfferSent,
		details:  &details,
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
		writes: func(tx *repository.PrivilegedStore) error {
			if err := tx.InsertOffer(ctx, offer); err != nil {
				return storeErr("insert offer", err)
			}
			return nil
		},
		messages: messages,
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *QuoteLifecycleService) buildOffer(principal *auth.Principal, requestID uuid.UUID, req *domain.MakeOfferRequest) (*domain.QuoteOffer, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: offer payload is required", ErrInvalidInput)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hasPrice := req.TotalPrice != nil
	if hasPrice == req.PriceOnRequest {
		return nil, fmt.Errorf("%w: provide either totalPrice or priceOnRequest", ErrInvalidInput)
	}
	if hasPrice && req.TotalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: totalPrice must not be negative", ErrInvalidInput)
	}

	expiry, err := parseDate(req.OfferExpiry)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if expiry != nil {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if expiry.Before(today) {
			return nil, fmt.Errorf("%w: offerExpiry must not be in the past", ErrInvalidInput)
		}
	}

	offer := &domain.QuoteOffer{
		QuoteRequestID: requestID,
		PriceOnRequest: req.PriceOnRequest,
		Currency:       currencyOrDefault(req.Currency),
		Conditions:     strings.TrimSpace(req.Conditions),
		PaymentTerms:   strings.TrimSpace(req.PaymentTerms),
		OfferExpiry:    expiry,
		Notes:          strings.TrimSpace(req.Notes),
		CreatedByID:    principal.UserID,
		CreatedByName:  principal.DisplayName,
		CreatedAt:      now,
	}
	if hasPrice {
		offer.TotalPrice = decimal.NewNullDecimal(req.TotalPrice.Round(2))
	}
	return offer, nil
}

// RevokeOffer withdraws the current offer and returns the request to review
func (s *QuoteLifecycleService) RevokeOffer(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return err
	}
	if !isOfferOpen(request.Status) {
		return ErrInvalidState
	}

	var messages []notify.Message
	if request.Agency != nil {
		messages = s.collect(id, func() (notify.Message, error) {
			return s.composer.OfferRevoked(request, request.Agency)
		})
	}

	return s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusInReview,
		action:   ActionOfferRevoked,
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
		messages: messages,
	})
}

// SendPaymentDetails records bank details, optionally with a contract document, and
// sends them to the agency. The document is stored before the transaction and removed
// again if the transition fails.
func (s *QuoteLifecycleService) SendPaymentDetails(ctx context.Context, principal *auth.Principal, id uuid.UUID, req *domain.SendPaymentDetailsRequest, contract *ContractUpload) (*domain.QuotePaymentDetails, error) {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.QuoteStatusAccepted {
		return nil, ErrInvalidState
	}

	details, err := s.buildPaymentDetails(principal, id, req)
	if err != nil {
		return nil, err
	}

	if contract != nil {
		if s.documents == nil {
			return nil, fmt.Errorf("%w: document storage is not configured", ErrInvalidInput)
		}
		obj, err := s.documents.Put(ctx, "contracts/"+id.String(), contract.Filename, contract.ContentType, contract.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to store contract: %w", err)
		}
		details.ContractPath = &obj.Path
		details.ContractFilename = contract.Filename
		details.ContractContentType = contract.ContentType
		details.ContractSize = obj.Size
	}

	var messages []notify.Message
	if request.Agency != nil {
		messages = s.collect(id, func() (notify.Message, error) {
			return s.composer.PaymentDetails(request, request.Agency, details)
		})
	}

	summary := fmt.Sprintf("Beneficiario %s, IBAN %s", details.Beneficiary, details.IBAN)
	if details.AmountDue.Valid {
		summary += ", importo " + notify.FormatPrice(details.AmountDue, false, details.Currency)
	}

	err = s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusPaymentSent,
		action:   ActionPaymentSent,
		details:  &summary,
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
		writes: func(tx *repository.PrivilegedStore) error {
			if err := tx.InsertPaymentDetails(ctx, details); err != nil {
				return storeErr("insert payment details", err)
			}
			return nil
		},
		messages: messages,
	})
	if err != nil {
		if details.ContractPath != nil {
			if delErr := s.documents.Delete(context.WithoutCancel(ctx), *details.ContractPath); delErr != nil {
				s.logger.Warn("failed to remove contract after aborted transition",
					zap.String("quoteRequestID", id.String()),
					zap.String("path", *details.ContractPath),
					zap.Error(delErr),
				)
			}
		}
		return nil, err
	}
	return details, nil
}

func (s *QuoteLifecycleService) buildPaymentDetails(principal *auth.Principal, requestID uuid.UUID, req *domain.SendPaymentDetailsRequest) (*domain.QuotePaymentDetails, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: payment details are required", ErrInvalidInput)
	}

	normalized := *req
	normalized.BankName = strings.TrimSpace(req.BankName)
	normalized.Beneficiary = strings.TrimSpace(req.Beneficiary)
	normalized.IBAN = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(req.IBAN), " ", ""))
	if err := s.validate.Struct(&normalized); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if normalized.AmountDue != nil && !normalized.AmountDue.IsPositive() {
		return nil, fmt.Errorf("%w: amountDue must be positive", ErrInvalidInput)
	}

	dueDate, err := parseDate(normalized.DueDate)
	if err != nil {
		return nil, err
	}

	details := &domain.QuotePaymentDetails{
		QuoteRequestID:   requestID,
		BankName:         normalized.BankName,
		IBAN:             normalized.IBAN,
		Beneficiary:      normalized.Beneficiary,
		Currency:         currencyOrDefault(normalized.Currency),
		DueDate:          dueDate,
		PaymentReference: strings.TrimSpace(normalized.PaymentReference),
		Notes:            strings.TrimSpace(normalized.Notes),
		CreatedByID:      principal.UserID,
		CreatedAt:        s.now(),
	}
	if normalized.AmountDue != nil {
		details.AmountDue = decimal.NewNullDecimal(normalized.AmountDue.Round(2))
	}
	return details, nil
}

// Confirm finalises a booking once payment details were sent
func (s *QuoteLifecycleService) Confirm(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return err
	}
	if request.Status != domain.QuoteStatusPaymentSent {
		return ErrInvalidState
	}

	var messages []notify.Message
	if request.Agency != nil {
		messages = s.collect(id, func() (notify.Message, error) {
			return s.composer.BookingConfirmed(request, request.Agency)
		})
	}

	return s.apply(ctx, request, transition{
		from:     []domain.QuoteStatus{request.Status},
		to:       domain.QuoteStatusConfirmed,
		action:   ActionBookingConfirm,
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
		messages: messages,
	})
}

// Reject closes a non-terminal request. The motivation is required and sent to the agency.
func (s *QuoteLifecycleService) Reject(ctx context.Context, principal *auth.Principal, id uuid.UUID, motivation string) error {
	request, err := s.loadForAdmin(ctx, principal, id)
	if err != nil {
		return err
	}
	if request.Status.IsTerminal() {
		return ErrInvalidState
	}

	motivation = strings.TrimSpace(motivation)
	if motivation == "" {
		return fmt.Errorf("%w: motivation is required", ErrInvalidInput)
	}

	var messages []notify.Message
	if request.Agency != nil {
		messages = s.collect(id, func() (notify.Message, error) {
			return s.composer.RequestRejected(request, request.Agency, motivation)
		})
	}

	return s.apply(ctx, request, transition{
		from:     domain.NonTerminalQuoteStatuses(),
		to:       domain.QuoteStatusRejected,
		patch:    map[string]interface{}{"reject_reason": motivation},
		action:   ActionRequestRejected,
		details:  strPtr(motivation),
		actor:    domain.TimelineActorAdmin,
		actorID:  principal.UserID,
		messages: messages,
	})
}

// OpenContract returns the stored contract document of the latest payment details
func (s *QuoteLifecycleService) OpenContract(ctx context.Context, principal *auth.Principal, id uuid.UUID) (io.ReadCloser, *domain.QuotePaymentDetails, error) {
	if _, err := s.loadForAdmin(ctx, principal, id); err != nil {
		return nil, nil, err
	}

	details, err := s.store.LatestPaymentDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrContractNotFound
		}
		return nil, nil, storeErr("load payment details", err)
	}
	if details.ContractPath == nil || s.documents == nil {
		return nil, nil, ErrContractNotFound
	}

	rc, err := s.documents.Open(ctx, *details.ContractPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrContractNotFound
		}
		return nil, nil, fmt.Errorf("failed to open contract: %w", err)
	}
	return rc, details, nil
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*value))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, *value)
	}
	return &t, nil
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "EUR"
	}
	return currency
}
