package boltdb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

func newTestConflict(itemID string, detectedAt int64) *models.SyncConflict {
	return &models.SyncConflict{
		ID:       uuid.NewString(),
		ItemID:   itemID,
		Type:     models.KindNote,
		TargetID: "subject-1",
		ClientData: map[string]json.RawMessage{
			"note": json.RawMessage(`"mine"`),
		},
		ServerData: map[string]json.RawMessage{
			"note": json.RawMessage(`"theirs"`),
		},
		ConflictFields: []string{"note"},
		ServerVersion:  2,
		DetectedAt:     detectedAt,
	}
}

func TestSaveAndGetConflict(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	conflict := newTestConflict("item-1", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, conflict))

	got, err := store.GetConflict(ctx, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, conflict.ItemID, got.ItemID)
	assert.Equal(t, conflict.ConflictFields, got.ConflictFields)
	assert.False(t, got.Resolved)
}

func TestGetConflict_NotFound(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetConflict(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestGetConflictByItem(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	conflict := newTestConflict("item-1", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, conflict))

	got, err := store.GetConflictByItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, conflict.ID, got.ID)

	_, err = store.GetConflictByItem(ctx, "other")
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestGetConflictByItem_SkipsResolved(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	conflict := newTestConflict("item-1", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, conflict))
	require.NoError(t, store.MarkResolved(ctx, conflict.ID, models.ResolutionServer))

	_, err := store.GetConflictByItem(ctx, "item-1")
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestListConflicts_OldestFirst(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	newer := newTestConflict("item-2", base+60_000)
	older := newTestConflict("item-1", base)

	require.NoError(t, store.SaveConflict(ctx, newer))
	require.NoError(t, store.SaveConflict(ctx, older))

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, older.ID, conflicts[0].ID)
	assert.Equal(t, newer.ID, conflicts[1].ID)
}

func TestCountOpenConflicts(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first := newTestConflict("item-1", time.Now().UnixMilli())
	second := newTestConflict("item-2", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, first))
	require.NoError(t, store.SaveConflict(ctx, second))

	require.NoError(t, store.MarkResolved(ctx, first.ID, models.ResolutionClient))

	count, err := store.CountOpenConflicts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkResolved_AlreadyResolved(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	conflict := newTestConflict("item-1", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, conflict))

	require.NoError(t, store.MarkResolved(ctx, conflict.ID, models.ResolutionMerged))

	err := store.MarkResolved(ctx, conflict.ID, models.ResolutionClient)
	assert.ErrorIs(t, err, storage.ErrConflictResolved)

	// First resolution sticks.
	got, err := store.GetConflict(ctx, conflict.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionMerged, got.Resolution)
}

func TestRemoveConflictsByItem(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConflict(ctx, newTestConflict("item-1", time.Now().UnixMilli())))
	require.NoError(t, store.SaveConflict(ctx, newTestConflict("item-1", time.Now().UnixMilli())))
	keep := newTestConflict("item-2", time.Now().UnixMilli())
	require.NoError(t, store.SaveConflict(ctx, keep))

	require.NoError(t, store.RemoveConflictsByItem(ctx, "item-1"))

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, keep.ID, conflicts[0].ID)
}

func TestClearConflicts(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConflict(ctx, newTestConflict("item-1", time.Now().UnixMilli())))
	require.NoError(t, store.ClearConflicts(ctx))

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
