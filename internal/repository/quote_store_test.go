package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/repository"
	"github.com/travelportal/quote-api/internal/testutil"
	"gorm.io/gorm"
)

func TestScopedStore_OnlySeesOwnRequests(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	mine := testutil.CreateAgency(t, db, "user-a", "Agenzia A")
	theirs := testutil.CreateAgency(t, db, "user-b", "Agenzia B")
	own := testutil.CreateQuoteRequest(t, db, mine, domain.QuoteStatusOfferSent)
	foreign := testutil.CreateQuoteRequest(t, db, theirs, domain.QuoteStatusOfferSent)
	testutil.CreateOffer(t, db, own, "500.00", nil)
	testutil.CreateOffer(t, db, foreign, "700.00", nil)

	store := repository.NewScopedStore(db, mine.ID)
	assert.Equal(t, mine.ID, store.AgencyID())

	requests, total, err := store.ListRequests(ctx, repository.QuoteRequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, requests, 1)
	assert.Equal(t, own.ID, requests[0].ID)

	_, err = store.GetRequest(ctx, foreign.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = store.CurrentOffer(ctx, foreign.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	offer, err := store.CurrentOffer(ctx, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own.ID, offer.QuoteRequestID)

	_, err = store.LatestPaymentDetails(ctx, foreign.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	entries, err := store.ListTimeline(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrivilegedStore_UpdateStatusWhere(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := repository.NewPrivilegedStore(db)

	agency := testutil.CreateAgency(t, db, "user-a", "Agenzia A")
	request := testutil.CreateQuoteRequest(t, db, agency, domain.QuoteStatusOfferSent)

	affected, err := store.UpdateStatusWhere(ctx, request.ID,
		[]domain.QuoteStatus{domain.QuoteStatusInReview}, domain.QuoteStatusAccepted, nil)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = store.UpdateStatusWhere(ctx, request.ID,
		[]domain.QuoteStatus{domain.QuoteStatusOfferSent, domain.QuoteStatusOffered}, domain.QuoteStatusDeclined,
		map[string]interface{}{"decline_reason": "troppo caro"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reloaded, err := store.GetRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusDeclined, reloaded.Status)
	require.NotNil(t, reloaded.DeclineReason)
	assert.Equal(t, "troppo caro", *reloaded.DeclineReason)
	require.NotNil(t, reloaded.Agency)
	assert.Equal(t, "Agenzia A", reloaded.Agency.BusinessName)
}

func TestPrivilegedStore_TransactionRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := repository.NewPrivilegedStore(db)

	agency := testutil.CreateAgency(t, db, "user-a", "Agenzia A")
	request := testutil.CreateQuoteRequest(t, db, agency, domain.QuoteStatusOfferSent)

	err := store.Transaction(ctx, func(tx *repository.PrivilegedStore) error {
		if err := tx.InsertParticipants(ctx, []domain.QuoteParticipant{
			{RequestID: request.ID, FullName: "Mario Rossi", CreatedAt: time.Now().UTC()},
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	count, err := store.CountParticipants(ctx, request.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPrivilegedStore_ListRequestsFiltersAndSorts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := repository.NewPrivilegedStore(db)

	a := testutil.CreateAgency(t, db, "user-a", "Agenzia A")
	b := testutil.CreateAgency(t, db, "user-b", "Agenzia B")
	testutil.CreateQuoteRequest(t, db, a, domain.QuoteStatusSent)
	testutil.CreateQuoteRequest(t, db, b, domain.QuoteStatusSent)
	testutil.CreateQuoteRequest(t, db, b, domain.QuoteStatusConfirmed)

	status := domain.QuoteStatusSent
	requests, total, err := store.ListRequests(ctx, repository.QuoteRequestFilter{
		Status: &status,
		Sort:   repository.SortConfig{Field: "createdAt", Order: repository.SortOrderAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, requests, 2)
	assert.False(t, requests[0].CreatedAt.After(requests[1].CreatedAt))
}

func TestPrivilegedStore_DeleteOrphanParticipants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := repository.NewPrivilegedStore(db)

	agency := testutil.CreateAgency(t, db, "user-a", "Agenzia A")
	pending := testutil.CreateQuoteRequest(t, db, agency, domain.QuoteStatusOfferSent)
	accepted := testutil.CreateQuoteRequest(t, db, agency, domain.QuoteStatusAccepted)

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()
	require.NoError(t, store.InsertParticipants(ctx, []domain.QuoteParticipant{
		{RequestID: pending.ID, FullName: "Orfano", CreatedAt: old},
		{RequestID: pending.ID, FullName: "Appena inserito", SortOrder: 1, CreatedAt: recent},
		{RequestID: accepted.ID, FullName: "Confermato", CreatedAt: old},
	}))

	deleted, err := store.DeleteOrphanParticipants(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := store.ListParticipants(ctx, pending.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Appena inserito", remaining[0].FullName)

	count, err := store.CountParticipants(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"createdAt": "quote_requests.created_at"}

	assert.Equal(t, "quote_requests.created_at ASC",
		repository.BuildOrderClause(repository.SortConfig{Field: "createdAt", Order: repository.ParseSortOrder("ASC")}, fields, "id"))
	assert.Equal(t, "id DESC",
		repository.BuildOrderClause(repository.SortConfig{Field: "status; DROP TABLE", Order: repository.ParseSortOrder("x")}, fields, "id"))
}
