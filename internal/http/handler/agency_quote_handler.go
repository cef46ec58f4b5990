package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/service"
	"go.uber.org/zap"
)

// AgencyQuoteHandler serves the agency area: own quote requests and offer decisions
type AgencyQuoteHandler struct {
	queries   *service.QuoteQueryService
	lifecycle *service.QuoteLifecycleService
	logger    *zap.Logger
}

func NewAgencyQuoteHandler(queries *service.QuoteQueryService, lifecycle *service.QuoteLifecycleService, logger *zap.Logger) *AgencyQuoteHandler {
	return &AgencyQuoteHandler{
		queries:   queries,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// List godoc
// @Summary List own quote requests
// @Description Returns the quote requests of the caller's agency, newest first
// @Tags Agency
// @Produce json
// @Param status query string false "Filter by status" Enums(sent, in_review, offer_sent, accepted, declined, payment_sent, confirmed, rejected)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.QuoteRequestDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError "No agency for this account"
// @Security BearerAuth
// @Router /agency/quotes [get]
func (h *AgencyQuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQuoteFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queries.ListForAgency(r.Context(), principalFrom(r), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get own quote request
// @Description Returns the request with its current offer, participants, payment details and timeline
// @Tags Agency
// @Produce json
// @Param id path string true "Quote request ID"
// @Success 200 {object} domain.QuoteRequestDetailDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Not found or not owned by the caller"
// @Security BearerAuth
// @Router /agency/quotes/{id} [get]
func (h *AgencyQuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	detail, err := h.queries.GetForAgency(r.Context(), principalFrom(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Accept godoc
// @Summary Accept the current offer
// @Description Records the traveler list and moves the request to accepted. The offer must be open and not expired.
// @Tags Agency
// @Accept json
// @Produce json
// @Param id path string true "Quote request ID"
// @Param request body domain.AcceptOfferRequest true "Participants"
// @Success 200 {object} domain.OperationResult
// @Failure 404 {object} domain.OperationResult "Not found or not owned by the caller"
// @Failure 409 {object} domain.OperationResult "Offer not open, expired, or changed concurrently"
// @Failure 422 {object} domain.OperationResult "Invalid participant"
// @Security BearerAuth
// @Router /agency/quotes/{id}/accept [post]
func (h *AgencyQuoteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.OperationResult{Error: "invalid quote request id"})
		return
	}

	var req domain.AcceptOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.OperationResult{Error: "invalid request body"})
		return
	}

	err = h.lifecycle.AcceptOffer(r.Context(), principalFrom(r), id, req.Participants)
	if err != nil {
		h.logger.Info("offer acceptance refused", zap.String("quoteRequestID", id.String()), zap.Error(err))
	}
	respondOperationResult(w, err)
}

// Decline godoc
// @Summary Decline the current offer
// @Description Moves the request to declined with an optional motivation
// @Tags Agency
// @Accept json
// @Produce json
// @Param id path string true "Quote request ID"
// @Param request body domain.DeclineOfferRequest false "Motivation"
// @Success 200 {object} domain.OperationResult
// @Failure 404 {object} domain.OperationResult
// @Failure 409 {object} domain.OperationResult
// @Security BearerAuth
// @Router /agency/quotes/{id}/decline [post]
func (h *AgencyQuoteHandler) Decline(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.OperationResult{Error: "invalid quote request id"})
		return
	}

	// the body is optional, chunked requests included
	var req domain.DeclineOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, domain.OperationResult{Error: "invalid request body"})
		return
	}
	if err := validate.Struct(req); err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, domain.OperationResult{Error: "motivation is too long"})
		return
	}

	err = h.lifecycle.DeclineOffer(r.Context(), principalFrom(r), id, req.Motivation)
	if err != nil {
		h.logger.Info("offer decline refused", zap.String("quoteRequestID", id.String()), zap.Error(err))
	}
	respondOperationResult(w, err)
}
