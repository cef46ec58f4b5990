package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/testutil"
)

func (f *handlerFixture) createOutbox(t *testing.T, status domain.OutboxStatus, attempts int) *domain.NotificationOutbox {
	t.Helper()
	lastError := "smtp unavailable"
	row := &domain.NotificationOutbox{
		Kind:           domain.NotificationBookingConfirmed,
		RecipientEmail: f.agency.Email,
		Subject:        "Prenotazione confermata",
		Body:           "<p>Confermata</p>",
		Status:         status,
		Attempts:       attempts,
		LastError:      &lastError,
	}
	require.NoError(t, f.db.Create(row).Error)
	return row
}

func TestNotificationHandler_List(t *testing.T) {
	f := setupHandlers(t)
	f.createOutbox(t, domain.OutboxStatusFailed, 1)
	f.createOutbox(t, domain.OutboxStatusAbandoned, 3)
	f.createOutbox(t, domain.OutboxStatusFailed, 2)

	rr := httptest.NewRecorder()
	f.notifications.List(rr, newRequest(http.MethodGet, "/admin/notifications?status=failed", nil, testutil.AdminPrincipal(), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(2), decode[domain.PaginatedResponse](t, rr).Total)

	rr = httptest.NewRecorder()
	f.notifications.List(rr, newRequest(http.MethodGet, "/admin/notifications", nil, testutil.AdminPrincipal(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(3), decode[domain.PaginatedResponse](t, rr).Total)

	rr = httptest.NewRecorder()
	f.notifications.List(rr, newRequest(http.MethodGet, "/admin/notifications?status=lost", nil, testutil.AdminPrincipal(), nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationHandler_Retry(t *testing.T) {
	f := setupHandlers(t)
	abandoned := f.createOutbox(t, domain.OutboxStatusAbandoned, 3)

	retry := func(id string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		f.notifications.Retry(rr, newRequest(http.MethodPost, "/", nil, testutil.AdminPrincipal(), map[string]string{"id": id}))
		return rr
	}

	rr := retry(abandoned.ID.String())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dto := decode[domain.NotificationOutboxDTO](t, rr)
	assert.Equal(t, domain.OutboxStatusSent, dto.Status)
	assert.Equal(t, 1, dto.Attempts)
	assert.NotNil(t, dto.SentAt)
	require.Len(t, f.sender.Messages(), 1)

	rr = retry(abandoned.ID.String())
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "only failed or abandoned notifications can be retried", decode[domain.APIError](t, rr).Detail)

	assert.Equal(t, http.StatusNotFound, retry(uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, retry("42").Code)
}
