package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-spice-must-chat/internal/common"
	"github.com/Veraticus/the-spice-must-chat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndLatestStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.LatestStatus(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	base := time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.PublishStatus(ctx, model.StatusRecord{
		Status:         model.StatusWaitingQR,
		PairingPayload: "2@abc,def",
		UpdatedAt:      base,
	}))
	require.NoError(t, store.PublishStatus(ctx, model.StatusRecord{
		Status:    model.StatusConnected,
		UpdatedAt: base.Add(time.Minute),
	}))

	latest, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConnected, latest.Status)
	assert.Empty(t, latest.PairingPayload)
	assert.True(t, base.Add(time.Minute).Equal(latest.UpdatedAt))
}

func TestPublishStatus_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	err := store.PublishStatus(ctx, model.StatusRecord{Status: "bogus", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	err = store.PublishStatus(ctx, model.StatusRecord{Status: model.StatusConnected})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPruneStatusHistory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.PublishStatus(ctx, model.StatusRecord{
			Status:    model.StatusConnecting,
			UpdatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	removed, err := store.PruneStatusHistory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	latest, err := store.LatestStatus(ctx)
	require.NoError(t, err)
	assert.True(t, now.Add(4*time.Second).Equal(latest.UpdatedAt))
}
