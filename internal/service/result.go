package service

import (
	"errors"

	"github.com/travelportal/quote-api/internal/domain"
)

// MessageNotFoundOrForbidden is shown for both missing and foreign quote requests
const MessageNotFoundOrForbidden = "quote request not found or not authorized"

// PublicMessage returns the short caller-facing text for an operation error.
// It never reveals whether a quote request exists for another agency.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrUnauthenticated):
		return "authentication required"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrQuoteRequestNotFound):
		return MessageNotFoundOrForbidden
	case errors.Is(err, ErrNoAgency):
		return "no agency is associated with this account"
	case errors.Is(err, ErrOfferExpired):
		return "the offer has expired"
	case errors.Is(err, ErrOfferNotFound):
		return "no offer is available for this quote request"
	case errors.Is(err, ErrInvalidState):
		return "the quote request is not in a state that allows this operation"
	case errors.Is(err, ErrConflict):
		return "the quote request was updated by someone else, please reload it"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return "an unexpected error occurred"
	}
}

// ToOperationResult folds an operation outcome into the uniform success/error shape
func ToOperationResult(err error) domain.OperationResult {
	if err == nil {
		return domain.OperationResult{Success: true}
	}
	return domain.OperationResult{Success: false, Error: PublicMessage(err)}
}
