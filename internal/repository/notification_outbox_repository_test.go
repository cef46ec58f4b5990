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
)

func TestNotificationOutboxRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewNotificationOutboxRepository(db)

	rows := []*domain.NotificationOutbox{
		{Kind: domain.NotificationOfferSent, RecipientEmail: "a@agency.test", Subject: "uno", Body: "<p>1</p>", Status: domain.OutboxStatusSent},
		{Kind: domain.NotificationOfferRevoked, RecipientEmail: "b@agency.test", Subject: "due", Body: "<p>2</p>"},
	}
	require.NoError(t, repo.Enqueue(ctx, rows))
	for _, row := range rows {
		assert.Equal(t, domain.OutboxStatusPending, row.Status)
	}

	claimed, err := repo.Claim(ctx, rows[0].ID, 2)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.Claim(ctx, rows[0].ID, 2)
	require.NoError(t, err)
	assert.False(t, claimed, "a processing row cannot be claimed twice")

	batch, err := repo.ClaimDeliverable(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, rows[1].ID, batch[0].ID)
	assert.Equal(t, domain.OutboxStatusProcessing, batch[0].Status)

	require.NoError(t, repo.MarkFailed(ctx, rows[0].ID, "connection refused", 2))
	first, err := repo.GetByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusFailed, first.Status)
	assert.Equal(t, 1, first.Attempts)

	// outcomes only apply to claimed rows
	require.NoError(t, repo.MarkFailed(ctx, rows[0].ID, "connection refused", 2))
	first, err = repo.GetByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempts)

	require.NoError(t, repo.MarkSent(ctx, rows[1].ID, time.Now().UTC()))
	second, err := repo.GetByID(ctx, rows[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusSent, second.Status)
	assert.Equal(t, 1, second.Attempts)

	batch, err = repo.ClaimDeliverable(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, rows[0].ID, batch[0].ID)

	require.NoError(t, repo.MarkFailed(ctx, rows[0].ID, "connection refused", 2))
	first, err = repo.GetByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusAbandoned, first.Status)
	assert.Equal(t, 2, first.Attempts)

	batch, err = repo.ClaimDeliverable(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	affected, err := repo.ResetForRetry(ctx, rows[1].ID)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.ResetForRetry(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	first, err = repo.GetByID(ctx, rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusPending, first.Status)
	assert.Zero(t, first.Attempts)

	abandoned := domain.OutboxStatusAbandoned
	listed, total, err := repo.List(ctx, &abandoned, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, listed)
}

func TestNotificationOutboxRepository_ReleaseStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := repository.NewNotificationOutboxRepository(db)

	row := &domain.NotificationOutbox{Kind: domain.NotificationOfferSent, RecipientEmail: "a@agency.test", Subject: "uno", Body: "<p>1</p>"}
	require.NoError(t, repo.Enqueue(ctx, []*domain.NotificationOutbox{row}))
	claimed, err := repo.Claim(ctx, row.ID, 3)
	require.NoError(t, err)
	require.True(t, claimed)

	released, err := repo.ReleaseStale(ctx, time.Now().UTC().Add(-time.Minute), 3)
	require.NoError(t, err)
	assert.Zero(t, released)

	released, err = repo.ReleaseStale(ctx, time.Now().UTC().Add(time.Minute), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	stored, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "delivery interrupted", *stored.LastError)
}
