package handler

import (
	"net/http"

	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/service"
	"go.uber.org/zap"
)

// NotificationHandler exposes the email outbox to operators
type NotificationHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(notificationService *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// List godoc
// @Summary List outbox notifications
// @Description Paginated outbox messages, newest first
// @Tags Notifications
// @Produce json
// @Param status query string false "Filter by delivery status" Enums(pending, processing, sent, failed, abandoned)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NotificationOutboxDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.OutboxStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OutboxStatus(raw)
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		status = &s
	}

	page := parseIntQuery(r, "page", 1)
	pageSize := parseIntQuery(r, "pageSize", defaultPageSize)

	result, err := h.notificationService.List(r.Context(), status, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Retry godoc
// @Summary Retry a notification
// @Description Resets a failed or abandoned message and attempts delivery immediately
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} domain.NotificationOutboxDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Message is not failed or abandoned"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /admin/notifications/{id}/retry [post]
func (h *NotificationHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	dto, err := h.notificationService.Retry(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto)
}
