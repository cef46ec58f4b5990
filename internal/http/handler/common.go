package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/repository"
	"github.com/travelportal/quote-api/internal/service"
)

var validate = validator.New()

const defaultPageSize = 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondWithError sends an RFC 7807 style error body
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondValidationError reports request body validation failures field by field
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

func toJSONFieldName(field string) string {
	if field == "" {
		return field
	}
	if field == "IBAN" {
		return "iban"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	default:
		return domain.ErrorTypeInternal
	}
}

// statusForError maps service errors to HTTP status codes.
// Foreign and missing quote requests both map to 404.
func statusForError(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, service.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrQuoteRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoAgency):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotificationNotFound), errors.Is(err, service.ErrContractNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrOfferExpired),
		errors.Is(err, service.ErrOfferNotFound),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrNotificationNotRetryable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes an APIError for a failed admin operation
func respondServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := service.PublicMessage(err)
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		message = "notification not found"
	case errors.Is(err, service.ErrNotificationNotRetryable):
		message = "only failed or abandoned notifications can be retried"
	case errors.Is(err, service.ErrContractNotFound):
		message = "no contract document is stored for this quote request"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	apiErr := domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	}
	if errors.Is(err, service.ErrInvalidState) {
		apiErr.Type = domain.ErrorTypeInvalidState
	}
	_ = json.NewEncoder(w).Encode(apiErr)
}

// respondOperationResult writes the success/error shape used by agency actions
func respondOperationResult(w http.ResponseWriter, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, service.ToOperationResult(nil))
		return
	}
	respondJSON(w, statusForError(err), service.ToOperationResult(err))
}

func principalFrom(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// parseQuoteFilter reads status, page, pageSize, sortBy and sortOrder from the query string
func parseQuoteFilter(r *http.Request) (repository.QuoteRequestFilter, error) {
	q := r.URL.Query()
	filter := repository.QuoteRequestFilter{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "pageSize", defaultPageSize),
		Sort: repository.SortConfig{
			Field: q.Get("sortBy"),
			Order: repository.ParseSortOrder(q.Get("sortOrder")),
		},
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.QuoteStatus(raw)
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid status %q", raw)
		}
		filter.Status = &status
	}
	return filter, nil
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
