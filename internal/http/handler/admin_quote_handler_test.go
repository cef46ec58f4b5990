package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/testutil"
)

func adminRequest(method string, body *strings.Reader, id uuid.UUID) *http.Request {
	if body == nil {
		body = strings.NewReader("")
	}
	return newRequest(method, "/", body, testutil.AdminPrincipal(), map[string]string{"id": id.String()})
}

func TestAdminQuoteHandler_StartReview(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusSent)

	rr := httptest.NewRecorder()
	f.adminHandler.StartReview(rr, adminRequest(http.MethodPost, nil, request.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, domain.QuoteStatusInReview, f.status(t, request))

	rr = httptest.NewRecorder()
	f.adminHandler.StartReview(rr, adminRequest(http.MethodPost, nil, request.ID))
	assert.Equal(t, http.StatusConflict, rr.Code)
	apiErr := decode[domain.APIError](t, rr)
	assert.Equal(t, domain.ErrorTypeInvalidState, apiErr.Type)
}

func TestAdminQuoteHandler_AgencyPrincipalIsRefused(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusSent)

	req := newRequest(http.MethodPost, "/", nil, testutil.AgencyPrincipal("agency-user-1"), map[string]string{"id": request.ID.String()})
	rr := httptest.NewRecorder()
	f.adminHandler.StartReview(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.QuoteStatusSent, f.status(t, request))
}

func TestAdminQuoteHandler_MakeOffer(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusInReview)

	expiry := testutil.Day(10).Format("2006-01-02")
	price := decimal.RequireFromString("1200")
	body := jsonBody(t, domain.MakeOfferRequest{TotalPrice: &price, OfferExpiry: &expiry, Conditions: "Volo incluso"})

	rr := httptest.NewRecorder()
	f.adminHandler.MakeOffer(rr, newRequest(http.MethodPost, "/", body, testutil.AdminPrincipal(), map[string]string{"id": request.ID.String()}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	offer := decode[domain.QuoteOfferDTO](t, rr)
	assert.Equal(t, request.ID, offer.QuoteRequestID)
	require.NotNil(t, offer.TotalPrice)
	assert.True(t, price.Equal(*offer.TotalPrice))
	assert.Equal(t, "EUR", offer.Currency)
	require.NotNil(t, offer.OfferExpiry)
	assert.Equal(t, expiry, *offer.OfferExpiry)
	assert.False(t, offer.Expired)
	assert.Equal(t, domain.QuoteStatusOfferSent, f.status(t, request))

	mail := f.mail()
	require.Len(t, mail, 1)
	assert.Equal(t, f.agency.Email, mail[0].To.Email)
}

func TestAdminQuoteHandler_MakeOffer_Invalid(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusInReview)

	rr := httptest.NewRecorder()
	f.adminHandler.MakeOffer(rr, adminRequest(http.MethodPost, strings.NewReader(`{"notes":"manca il prezzo"}`), request.ID))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	f.adminHandler.MakeOffer(rr, adminRequest(http.MethodPost, strings.NewReader(`not json`), request.ID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, domain.QuoteStatusInReview, f.status(t, request))
	assert.Empty(t, f.mail())
}

func TestAdminQuoteHandler_RevokeAndConfirm(t *testing.T) {
	f := setupHandlers(t)
	offered := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusOfferSent)
	paid := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusPaymentSent)

	rr := httptest.NewRecorder()
	f.adminHandler.RevokeOffer(rr, adminRequest(http.MethodPost, nil, offered.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, domain.QuoteStatusInReview, f.status(t, offered))

	rr = httptest.NewRecorder()
	f.adminHandler.Confirm(rr, adminRequest(http.MethodPost, nil, paid.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, domain.QuoteStatusConfirmed, f.status(t, paid))

	rr = httptest.NewRecorder()
	f.adminHandler.Confirm(rr, adminRequest(http.MethodPost, nil, uuid.New()))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminQuoteHandler_Reject(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusInReview)

	rr := httptest.NewRecorder()
	f.adminHandler.Reject(rr, adminRequest(http.MethodPost, strings.NewReader(`{"motivation":"   "}`), request.ID))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	apiErr := decode[domain.APIError](t, rr)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "motivation")
	assert.Equal(t, domain.QuoteStatusInReview, f.status(t, request))

	rr = httptest.NewRecorder()
	f.adminHandler.Reject(rr, adminRequest(http.MethodPost, strings.NewReader(`{"motivation":"Date non disponibili"}`), request.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	stored, err := f.store.GetRequest(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusRejected, stored.Status)
	require.NotNil(t, stored.RejectReason)
	assert.Equal(t, "Date non disponibili", *stored.RejectReason)
}

func paymentForm(t *testing.T, details string, contract []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("details", details))
	if contract != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="contract"; filename="contratto.pdf"`)
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(contract)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

const paymentDetailsJSON = `{"bankName":"Banca Sella","iban":"IT60 X054 2811 1010 0000 0123 456","beneficiary":"Tour Operator Srl","amountDue":"1200.00"}`

func TestAdminQuoteHandler_SendPaymentDetails_Multipart(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusAccepted)
	contract := []byte("%PDF-1.4 contratto di viaggio")

	body, contentType := paymentForm(t, paymentDetailsJSON, contract)
	req := newRequest(http.MethodPost, "/", body, testutil.AdminPrincipal(), map[string]string{"id": request.ID.String()})
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	f.adminHandler.SendPaymentDetails(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	dto := decode[domain.QuotePaymentDetailsDTO](t, rr)
	assert.Equal(t, "IT60X0542811101000000123456", dto.IBAN)
	assert.True(t, dto.HasContract)
	assert.Equal(t, "contratto.pdf", dto.ContractFilename)
	assert.Equal(t, domain.QuoteStatusPaymentSent, f.status(t, request))

	rr = httptest.NewRecorder()
	f.adminHandler.DownloadContract(rr, adminRequest(http.MethodGet, nil, request.ID))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "contratto.pdf")
	assert.Equal(t, contract, rr.Body.Bytes())
}

func TestAdminQuoteHandler_SendPaymentDetails_JSON(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusAccepted)

	req := adminRequest(http.MethodPost, strings.NewReader(paymentDetailsJSON), request.ID)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.adminHandler.SendPaymentDetails(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.False(t, decode[domain.QuotePaymentDetailsDTO](t, rr).HasContract)

	rr = httptest.NewRecorder()
	f.adminHandler.DownloadContract(rr, adminRequest(http.MethodGet, nil, request.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminQuoteHandler_SendPaymentDetails_Refusals(t *testing.T) {
	f := setupHandlers(t)
	inReview := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusInReview)
	accepted := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusAccepted)

	rr := httptest.NewRecorder()
	f.adminHandler.SendPaymentDetails(rr, adminRequest(http.MethodPost, strings.NewReader(paymentDetailsJSON), inReview.ID))
	assert.Equal(t, http.StatusConflict, rr.Code)

	body, contentType := paymentForm(t, `{"bankName":"Banca Sella"}`, nil)
	req := newRequest(http.MethodPost, "/", body, testutil.AdminPrincipal(), map[string]string{"id": accepted.ID.String()})
	req.Header.Set("Content-Type", contentType)
	rr = httptest.NewRecorder()
	f.adminHandler.SendPaymentDetails(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	body, contentType = paymentForm(t, `{broken`, nil)
	req = newRequest(http.MethodPost, "/", body, testutil.AdminPrincipal(), map[string]string{"id": accepted.ID.String()})
	req.Header.Set("Content-Type", contentType)
	rr = httptest.NewRecorder()
	f.adminHandler.SendPaymentDetails(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, domain.QuoteStatusAccepted, f.status(t, accepted))
}

func TestAdminQuoteHandler_ListAndGet(t *testing.T) {
	f := setupHandlers(t)
	request := testutil.CreateQuoteRequest(t, f.db, f.agency, domain.QuoteStatusDeclined)
	testutil.CreateOffer(t, f.db, request, "1500", testutil.Day(3))
	testutil.CreateOffer(t, f.db, request, "", nil)
	other := testutil.CreateAgency(t, f.db, "agency-user-2", "Viaggi Luna")
	testutil.CreateQuoteRequest(t, f.db, other, domain.QuoteStatusSent)

	rr := httptest.NewRecorder()
	f.adminHandler.List(rr, newRequest(http.MethodGet, "/admin/quotes?pageSize=1", nil, testutil.AdminPrincipal(), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[domain.PaginatedResponse](t, rr)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)

	rr = httptest.NewRecorder()
	f.adminHandler.Get(rr, adminRequest(http.MethodGet, nil, request.ID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	detail := decode[domain.QuoteRequestDetailDTO](t, rr)
	assert.Len(t, detail.Offers, 2)
	require.NotNil(t, detail.CurrentOffer)

	rr = httptest.NewRecorder()
	f.adminHandler.Get(rr, newRequest(http.MethodGet, "/", nil, testutil.AdminPrincipal(), map[string]string{"id": "nope"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
