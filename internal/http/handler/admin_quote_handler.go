package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/mapper"
	"github.com/travelportal/quote-api/internal/service"
	"go.uber.org/zap"
)

// AdminQuoteHandler serves the back-office quote workflow
type AdminQuoteHandler struct {
	queries        *service.QuoteQueryService
	lifecycle      *service.QuoteLifecycleService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewAdminQuoteHandler(queries *service.QuoteQueryService, lifecycle *service.QuoteLifecycleService, maxUploadSizeMB int64, logger *zap.Logger) *AdminQuoteHandler {
	return &AdminQuoteHandler{
		queries:        queries,
		lifecycle:      lifecycle,
		maxUploadBytes: maxUploadSizeMB * 1024 * 1024,
		logger:         logger,
	}
}

// List godoc
// @Summary List quote requests
// @Description Lists quote requests across all agencies
// @Tags Admin
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param sortBy query string false "createdAt, updatedAt, status, departureDate"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.QuoteRequestDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes [get]
func (h *AdminQuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQuoteFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.queries.ListForAdmin(r.Context(), principalFrom(r), filter)
	if err != nil {
		h.logger.Error("failed to list quote requests", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get quote request
// @Description Returns the request with the full offer history
// @Tags Admin
// @Produce json
// @Param id path string true "Quote request ID"
// @Success 200 {object} domain.QuoteRequestDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id} [get]
func (h *AdminQuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	detail, err := h.queries.GetForAdmin(r.Context(), principalFrom(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// StartReview godoc
// @Summary Start review
// @Description Moves a new request from sent to in_review
// @Tags Admin
// @Produce json
// @Param id path string true "Quote request ID"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/review [post]
func (h *AdminQuoteHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "start review", h.lifecycle.StartReview)
}

// MakeOffer godoc
// @Summary Send an offer
// @Description Creates a new offer and moves the request to offer_sent. Either totalPrice or priceOnRequest must be given.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Quote request ID"
// @Param request body domain.MakeOfferRequest true "Offer"
// @Success 201 {object} domain.QuoteOfferDTO
// @Failure 409 {object} domain.APIError
// @Failure 422 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/offers [post]
func (h *AdminQuoteHandler) MakeOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	var req domain.MakeOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	offer, err := h.lifecycle.MakeOffer(r.Context(), principalFrom(r), id, &req)
	if err != nil {
		h.logFailure("make offer", id.String(), err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, mapper.ToQuoteOfferDTO(offer, time.Now().UTC()))
}

// RevokeOffer godoc
// @Summary Revoke the open offer
// @Description Withdraws an offer that has not been answered and returns the request to in_review
// @Tags Admin
// @Param id path string true "Quote request ID"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/revoke [post]
func (h *AdminQuoteHandler) RevokeOffer(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "revoke offer", h.lifecycle.RevokeOffer)
}

// SendPaymentDetails godoc
// @Summary Send payment details
// @Description Records bank details for an accepted request and emails them to the agency. Send JSON, or multipart/form-data with a "details" JSON part and an optional "contract" file.
// @Tags Admin
// @Accept json
// @Accept mpfd
// @Produce json
// @Param id path string true "Quote request ID"
// @Param request body domain.SendPaymentDetailsRequest true "Payment details"
// @Success 201 {object} domain.QuotePaymentDetailsDTO
// @Failure 409 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Failure 422 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/payment-details [post]
func (h *AdminQuoteHandler) SendPaymentDetails(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	var req domain.SendPaymentDetailsRequest
	var contract *service.ContractUpload

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1024*1024)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d MB)", h.maxUploadBytes/(1024*1024)))
				return
			}
			respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if err := json.Unmarshal([]byte(r.FormValue("details")), &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid details part")
			return
		}

		file, header, err := r.FormFile("contract")
		switch {
		case err == nil:
			defer file.Close()
			if header.Size > h.maxUploadBytes {
				respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large (max %d MB)", h.maxUploadBytes/(1024*1024)))
				return
			}
			contentType := header.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			contract = &service.ContractUpload{
				Filename:    header.Filename,
				ContentType: contentType,
				Data:        file,
			}
		case !errors.Is(err, http.ErrMissingFile):
			respondWithError(w, http.StatusBadRequest, "Invalid contract file")
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	details, err := h.lifecycle.SendPaymentDetails(r.Context(), principalFrom(r), id, &req, contract)
	if err != nil {
		h.logFailure("send payment details", id.String(), err)
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, mapper.ToQuotePaymentDetailsDTO(details))
}

// DownloadContract godoc
// @Summary Download contract
// @Description Streams the contract document attached to the latest payment details
// @Tags Admin
// @Produce octet-stream
// @Param id path string true "Quote request ID"
// @Success 200 {file} binary
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/contract [get]
func (h *AdminQuoteHandler) DownloadContract(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	rc, details, err := h.lifecycle.OpenContract(r.Context(), principalFrom(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", details.ContractContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": details.ContractFilename}))
	if details.ContractSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(details.ContractSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("contract download interrupted", zap.String("quoteRequestID", id.String()), zap.Error(err))
	}
}

// Confirm godoc
// @Summary Confirm booking
// @Description Moves a request from payment_sent to confirmed
// @Tags Admin
// @Param id path string true "Quote request ID"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/confirm [post]
func (h *AdminQuoteHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "confirm booking", h.lifecycle.Confirm)
}

// Reject godoc
// @Summary Reject request
// @Description Closes a non-terminal request with a mandatory motivation
// @Tags Admin
// @Accept json
// @Param id path string true "Quote request ID"
// @Param request body domain.RejectQuoteRequest true "Motivation"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Failure 422 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/quotes/{id}/reject [post]
func (h *AdminQuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}

	var req domain.RejectQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Motivation = strings.TrimSpace(req.Motivation)
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	if err := h.lifecycle.Reject(r.Context(), principalFrom(r), id, req.Motivation); err != nil {
		h.logFailure("reject quote request", id.String(), err)
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminQuoteHandler) simpleTransition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, p *auth.Principal, id uuid.UUID) error) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quote request ID")
		return
	}
	if err := fn(r.Context(), principalFrom(r), id); err != nil {
		h.logFailure(op, id.String(), err)
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logFailure logs unexpected errors at Error and business refusals at Info
func (h *AdminQuoteHandler) logFailure(op, id string, err error) {
	if statusForError(err) >= http.StatusInternalServerError {
		h.logger.Error("failed to "+op, zap.String("quoteRequestID", id), zap.Error(err))
		return
	}
	h.logger.Info(op+" refused", zap.String("quoteRequestID", id), zap.Error(err))
}
