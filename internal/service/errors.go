package service

import (
	"errors"
	"fmt"
)

// Quote lifecycle errors
var (
	// ErrUnauthenticated is returned when an operation is called without a principal
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the principal may not touch the quote request.
	// Callers must render it exactly like ErrQuoteRequestNotFound.
	ErrForbidden = errors.New("forbidden")

	// ErrQuoteRequestNotFound is returned when the quote request does not exist
	ErrQuoteRequestNotFound = errors.New("quote request not found")

	// ErrNoAgency is returned when the principal is not mapped to exactly one agency
	ErrNoAgency = errors.New("no agency for principal")

	// ErrInvalidState is returned when the transition is not allowed from the current status
	ErrInvalidState = errors.New("operation not allowed in current quote status")

	// ErrOfferExpired is returned when accepting an offer whose expiry date has passed
	ErrOfferExpired = errors.New("offer has expired")

	// ErrOfferNotFound is returned when a request in offer_sent has no offer row
	ErrOfferNotFound = errors.New("offer not found")

	// ErrConflict is returned when another writer changed the quote request first
	ErrConflict = errors.New("quote request was modified concurrently")

	// ErrInvalidInput is returned when an admin payload fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrStore wraps persistence failures
	ErrStore = errors.New("store error")

	// ErrNotificationNotFound is returned when an outbox message does not exist
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotificationNotRetryable is returned when retrying a message that is pending or sent
	ErrNotificationNotRetryable = errors.New("notification is not in a retryable state")

	// ErrContractNotFound is returned when no contract document was stored for the request
	ErrContractNotFound = errors.New("contract document not found")
)

// ValidationError reports the first invalid participant row.
// Index is 1-based to match what the agency sees in the form.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("participant %d: %s %s", e.Index, e.Field, e.Message)
}

// storeErr wraps a persistence failure so callers can match ErrStore
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
