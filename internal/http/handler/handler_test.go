package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/http/handler"
	"github.com/travelportal/quote-api/internal/notify"
	"github.com/travelportal/quote-api/internal/repository"
	"github.com/travelportal/quote-api/internal/service"
	"github.com/travelportal/quote-api/internal/storage"
	"github.com/travelportal/quote-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type handlerFixture struct {
	db            *gorm.DB
	store         *repository.PrivilegedStore
	sender        *testutil.RecordingSender
	delivery      *service.NotificationService
	agency        *domain.Agency
	agencyHandler *handler.AgencyQuoteHandler
	adminHandler  *handler.AdminQuoteHandler
	notifications *handler.NotificationHandler
}

func setupHandlers(t *testing.T) *handlerFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	store := repository.NewPrivilegedStore(db)
	sender := &testutil.RecordingSender{}
	notificationSvc := service.NewNotificationService(repository.NewNotificationOutboxRepository(db), sender, 3, log)
	t.Cleanup(notificationSvc.Wait)
	guard := service.NewAgencyGuard(repository.NewAgencyRepository(db), store, log)
	composer := notify.NewComposer("https://portal.test", notify.Recipient{Email: "ops@operator.test", Name: "Operativo"})
	documents, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	lifecycle := service.NewQuoteLifecycleService(store, guard, composer, notificationSvc, documents, log)
	queries := service.NewQuoteQueryService(db, store, guard, log)

	return &handlerFixture{
		db:            db,
		store:         store,
		sender:        sender,
		delivery:      notificationSvc,
		agency:        testutil.CreateAgency(t, db, "agency-user-1", "Viaggi Sole"),
		agencyHandler: handler.NewAgencyQuoteHandler(queries, lifecycle, log),
		adminHandler:  handler.NewAdminQuoteHandler(queries, lifecycle, 1, log),
		notifications: handler.NewNotificationHandler(notificationSvc, log),
	}
}

func (f *handlerFixture) status(t *testing.T, request *domain.QuoteRequest) domain.QuoteStatus {
	t.Helper()
	stored, err := f.store.GetRequest(context.Background(), request.ID)
	require.NoError(t, err)
	return stored.Status
}

// mail waits for background deliveries and returns what was sent
func (f *handlerFixture) mail() []testutil.SentMail {
	f.delivery.Wait()
	return f.sender.Messages()
}

// newRequest builds a request carrying the principal and chi URL params
func newRequest(method, target string, body io.Reader, principal *auth.Principal, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := req.Context()
	if principal != nil {
		ctx = auth.WithPrincipal(ctx, principal)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
