// Package testutil provides an in-memory SQLite database and quote fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/auth"
	"github.com/travelportal/quote-api/internal/database"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/notify"
	"github.com/travelportal/quote-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the quote schema.
// A single connection keeps the shared-cache database alive and serialises writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateAgency inserts an active agency owned by userID
func CreateAgency(t *testing.T, db *gorm.DB, userID, name string) *domain.Agency {
	t.Helper()
	agency := &domain.Agency{
		UserID:       userID,
		BusinessName: name,
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@agency.test",
		City:         "Milano",
		Status:       domain.AgencyStatusApproved,
	}
	require.NoError(t, repository.NewAgencyRepository(db).Create(context.Background(), agency))
	return agency
}

// CreateQuoteRequest inserts a tour request for the agency in the given status
func CreateQuoteRequest(t *testing.T, db *gorm.DB, agency *domain.Agency, status domain.QuoteStatus) *domain.QuoteRequest {
	t.Helper()
	departure := time.Now().UTC().AddDate(0, 3, 0).Truncate(24 * time.Hour)
	request := &domain.QuoteRequest{
		AgencyID:             agency.ID,
		RequestType:          domain.QuoteRequestTypeTour,
		ProductID:            uuid.New(),
		ProductName:          "Tour della Sicilia",
		DepartureDate:        &departure,
		ParticipantsAdults:   2,
		ParticipantsChildren: 1,
		Status:               status,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

// CreateOffer inserts an offer for the request. A nil expiry means the offer never expires.
func CreateOffer(t *testing.T, db *gorm.DB, request *domain.QuoteRequest, price string, expiry *time.Time) *domain.QuoteOffer {
	t.Helper()
	offer := &domain.QuoteOffer{
		QuoteRequestID: request.ID,
		Currency:       "EUR",
		OfferExpiry:    expiry,
		CreatedByID:    "admin-1",
		CreatedByName:  "Back Office",
		CreatedAt:      time.Now().UTC(),
	}
	if price == "" {
		offer.PriceOnRequest = true
	} else {
		offer.TotalPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	require.NoError(t, db.Create(offer).Error)
	return offer
}

// Day returns midnight UTC offset by the given number of days from today
func Day(offset int) *time.Time {
	now := time.Now().UTC()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

// AgencyPrincipal returns an agency principal for userID
func AgencyPrincipal(userID string) *auth.Principal {
	return &auth.Principal{UserID: userID, DisplayName: "Agency User", Email: userID + "@agency.test", Role: auth.RoleAgency}
}

// AdminPrincipal returns a back-office principal
func AdminPrincipal() *auth.Principal {
	return &auth.Principal{UserID: "admin-1", DisplayName: "Back Office", Email: "ops@operator.test", Role: auth.RoleAdmin}
}

// SentMail is one message captured by RecordingSender
type SentMail struct {
	To      notify.Recipient
	Subject string
	Body    string
}

// RecordingSender is an in-memory notify.Sender. Fail makes every send return an error.
type RecordingSender struct {
	mu   sync.Mutex
	Fail bool
	Sent []SentMail
}

func (s *RecordingSender) Send(_ context.Context, to notify.Recipient, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.Sent = append(s.Sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

// Messages returns a copy of the captured mail
func (s *RecordingSender) Messages() []SentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMail(nil), s.Sent...)
}

// GatedSender holds the first Send until Release is called. Later sends go straight through.
type GatedSender struct {
	RecordingSender
	first   sync.Once
	entered chan struct{}
	release chan struct{}
}

func NewGatedSender() *GatedSender {
	return &GatedSender{entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *GatedSender) Send(ctx context.Context, to notify.Recipient, subject, htmlBody string) error {
	held := false
	s.first.Do(func() { held = true })
	if held {
		close(s.entered)
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.RecordingSender.Send(ctx, to, subject, htmlBody)
}

// Entered is closed once the first Send is being held
func (s *GatedSender) Entered() <-chan struct{} {
	return s.entered
}

// Release lets the held Send complete
func (s *GatedSender) Release() {
	close(s.release)
}
