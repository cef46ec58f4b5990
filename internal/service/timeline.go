package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/repository"
)

// Timeline action labels shown to agencies and operators
const (
	ActionReviewStarted   = "Revisione avviata"
	ActionOfferSent       = "Offerta inviata"
	ActionOfferAccepted   = "Offerta accettata"
	ActionOfferDeclined   = "Offerta rifiutata"
	ActionOfferRevoked    = "Offerta revocata"
	ActionPaymentSent     = "Dati di pagamento inviati"
	ActionBookingConfirm  = "Prenotazione confermata"
	ActionRequestRejected = "Richiesta respinta"
)

// TimelineLogger appends audit entries. It writes through the store it is given,
// so entries share the transaction of the status change they describe.
type TimelineLogger struct {
	now func() time.Time
}

// NewTimelineLogger creates a timeline logger using the given clock
func NewTimelineLogger(now func() time.Time) *TimelineLogger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TimelineLogger{now: now}
}

// Append writes one entry for the request
func (t *TimelineLogger) Append(ctx context.Context, store *repository.PrivilegedStore, requestID uuid.UUID, action string, details *string, actor domain.TimelineActor, actorID string) error {
	entry := &domain.QuoteTimelineEntry{
		RequestID: requestID,
		Action:    action,
		Details:   details,
		Actor:     actor,
		ActorID:   actorID,
		CreatedAt: t.now(),
	}
	if err := store.AppendTimeline(ctx, entry); err != nil {
		return storeErr("append timeline", err)
	}
	return nil
}
