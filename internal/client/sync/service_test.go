package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

func okApplier() *RemoteApplierMock {
	return &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return &ApplyResult{NewVersion: 2}, nil
		},
	}
}

func TestEnqueue_Validation(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, models.Payload{TargetID: "subject-1"})
	assert.Error(t, err)

	_, err = svc.Enqueue(ctx, models.Payload{Kind: models.KindNote})
	assert.Error(t, err)
}

func TestEnqueue_AssignsIdentityAndTimestamp(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())

	before := time.Now().UnixMilli()
	item := enqueueNote(t, svc, "subject-1", "hello", 1)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, models.KindNote, item.Type)
	assert.GreaterOrEqual(t, item.Timestamp, before)
}

func TestEnqueue_SurvivesOffline(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "written offline", 1)

	items, err := svc.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusPending, items[0].Status)
}

func TestRetryItem_ResetsBudget(t *testing.T) {
	applier := &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return nil, errors.New("boom")
		},
	}
	cfg := testConfig()
	cfg.MaxRetries = 1
	svc := setupService(t, cfg, applier)
	ctx := context.Background()

	item := enqueueNote(t, svc, "subject-1", "hello", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, got.Status)

	require.NoError(t, svc.RetryItem(ctx, item.ID))

	got, err = svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Zero(t, got.Retries)
	assert.Empty(t, got.Error)
}

func TestRetryItem_OnlyFailedItems(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	item := enqueueNote(t, svc, "subject-1", "hello", 1)

	err := svc.RetryItem(ctx, item.ID)
	assert.Error(t, err)

	err = svc.RetryItem(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrItemNotFound)
}

func TestRemoveFromQueue_DropsConflictsToo(t *testing.T) {
	applier := &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return nil, &ConflictError{
				ServerFields: map[string]json.RawMessage{
					"note": json.RawMessage(`"other"`),
				},
				ServerVersion: 2,
			}
		},
	}
	svc := setupService(t, testConfig(), applier)
	ctx := context.Background()

	item := enqueueNote(t, svc, "subject-1", "mine", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	conflicts, err := svc.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	require.NoError(t, svc.RemoveFromQueue(ctx, item.ID))

	conflicts, err = svc.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestClearQueue(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "a", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	enqueueNote(t, svc, "subject-2", "b", 1)

	require.NoError(t, svc.ClearQueue(ctx))

	items, err := svc.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Stats from earlier cycles go with the queue.
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Stats.TotalSynced)
	assert.Zero(t, status.Stats.LastSyncTime)
	assert.Equal(t, models.SyncStatusIdle, status.Phase)
}

func TestClearFailedItems(t *testing.T) {
	applier := &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return nil, errors.New("boom")
		},
	}
	cfg := testConfig()
	cfg.InitialDelay = time.Minute
	svc := setupService(t, cfg, applier)
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "a", 1)
	enqueueNote(t, svc, "subject-2", "b", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	removed, err := svc.ClearFailedItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	items, err := svc.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func parkConflict(t *testing.T, svc *Service) (*models.QueuedItem, *models.SyncConflict) {
	t.Helper()
	ctx := context.Background()

	item := enqueueNote(t, svc, "subject-1", "mine", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	conflicts, err := svc.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	return item, conflicts[0]
}

func conflictApplier() *RemoteApplierMock {
	return &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return nil, &ConflictError{
				ServerFields: map[string]json.RawMessage{
					"note": json.RawMessage(`"theirs"`),
				},
				ServerVersion: 5,
			}
		},
	}
}

func TestResolveConflict_ClientRequeues(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())
	ctx := context.Background()

	item, conflict := parkConflict(t, svc)

	require.NoError(t, svc.ResolveConflict(ctx, conflict.ID, models.ResolutionClient, nil))

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, int64(5), got.Payload.BaseVersion)
	assert.JSONEq(t, `"mine"`, string(got.Payload.Fields["note"]))
}

func TestResolveConflict_ServerDiscards(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())
	ctx := context.Background()

	item, conflict := parkConflict(t, svc)

	require.NoError(t, svc.ResolveConflict(ctx, conflict.ID, models.ResolutionServer, nil))

	_, err := svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrItemNotFound)
}

func TestResolveConflict_MergedUsesProvidedFields(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())
	ctx := context.Background()

	item, conflict := parkConflict(t, svc)

	merged := map[string]json.RawMessage{
		"note": json.RawMessage(`"combined by hand"`),
	}
	require.NoError(t, svc.ResolveConflict(ctx, conflict.ID, models.ResolutionMerged, merged))

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, int64(5), got.Payload.BaseVersion)
	assert.JSONEq(t, `"combined by hand"`, string(got.Payload.Fields["note"]))
}

func TestResolveConflict_MergedRequiresData(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())

	_, conflict := parkConflict(t, svc)

	err := svc.ResolveConflict(context.Background(), conflict.ID, models.ResolutionMerged, nil)
	assert.ErrorIs(t, err, ErrMergedDataRequired)
}

func TestResolveConflict_Idempotent(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())
	ctx := context.Background()

	item, conflict := parkConflict(t, svc)

	require.NoError(t, svc.ResolveConflict(ctx, conflict.ID, models.ResolutionServer, nil))

	// A second resolution must change nothing, even with a different
	// verdict.
	err := svc.ResolveConflict(ctx, conflict.ID, models.ResolutionClient, nil)
	assert.ErrorIs(t, err, storage.ErrConflictResolved)

	_, err = svc.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrItemNotFound)
}

func TestResolveConflict_UnknownConflict(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())

	err := svc.ResolveConflict(context.Background(), "missing", models.ResolutionClient, nil)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}

func TestStatus_Snapshot(t *testing.T) {
	svc := setupService(t, testConfig(), conflictApplier())
	ctx := context.Background()

	parkConflict(t, svc)
	enqueueNote(t, svc, "subject-2", "pending", 1)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.False(t, status.Syncing)
	assert.Equal(t, 1, status.OpenConflicts)
	assert.Equal(t, 1, status.Counts[models.StatusConflict])
	assert.Equal(t, 1, status.Counts[models.StatusPending])
	assert.Equal(t, models.SyncStatusConflict, status.Phase)
}

func TestStatus_Phase(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusIdle, status.Phase)

	enqueueNote(t, svc, "subject-1", "text", 1)
	_, err = svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSuccess, status.Phase)
}

func TestStatus_PhaseErrorOnFailure(t *testing.T) {
	applier := &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			return nil, &RemoteRejectedError{Message: "bad payload", StatusCode: 422}
		},
	}
	svc := setupService(t, testConfig(), applier)
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "text", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, status.Phase)
}

func TestCacheDocument_FillsDefaults(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	doc := &models.CachedDocument{
		ID:   "doc-1",
		Name: "handbook.pdf",
		Data: []byte("content"),
	}
	require.NoError(t, svc.CacheDocument(ctx, doc))

	got, err := svc.GetCachedDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(len("content")), got.Size)
	assert.NotZero(t, got.CachedAt)

	used, quota, err := svc.GetStorageUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len("content")), used)
	assert.Greater(t, quota, used)

	require.NoError(t, svc.ClearCache(ctx))
	used, _, err = svc.GetStorageUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestStartStop_ReconnectTriggersSync(t *testing.T) {
	applier := okApplier()
	svc := setupService(t, testConfig(), applier)
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "offline edit", 1)

	svc.Start(ctx)
	defer svc.Stop()

	// Connectivity comes back; the queue drains on its own.
	svc.monitor.SetOnline(true)

	require.Eventually(t, func() bool {
		items, err := svc.ListQueue(ctx)
		return err == nil && len(items) == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotEmpty(t, applier.ApplyCalls())
}

func TestStartStop_GoingOfflineAbortsCycle(t *testing.T) {
	release := make(chan struct{})
	applier := &RemoteApplierMock{
		ApplyFunc: func(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return &ApplyResult{NewVersion: 2}, nil
			}
		},
	}
	svc := setupService(t, testConfig(), applier)
	ctx := context.Background()

	first := enqueueNote(t, svc, "subject-1", "one", 1)
	second := enqueueNote(t, svc, "subject-2", "two", 1)

	svc.Start(ctx)
	defer svc.Stop()
	defer close(release)

	// Reconnect starts a cycle that parks on the first item.
	svc.monitor.SetOnline(true)
	require.Eventually(t, func() bool {
		return len(applier.ApplyCalls()) == 1
	}, time.Second, 5*time.Millisecond)

	// Dropping offline cuts the cycle short.
	svc.monitor.SetOnline(false)
	require.Eventually(t, func() bool {
		return !svc.syncing.Load()
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, applier.ApplyCalls(), 1)

	// Neither item is charged a retry for the disconnect.
	for _, id := range []string{first.ID, second.ID} {
		got, err := svc.GetItem(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Zero(t, got.Retries)
	}
}

func TestResetStats(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	enqueueNote(t, svc, "subject-1", "a", 1)
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, svc.ResetStats(ctx))

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Stats.TotalSynced)
}

func TestOnStatusChange_FiresOnFlipsAndCycles(t *testing.T) {
	svc := setupService(t, testConfig(), okApplier())
	ctx := context.Background()

	var notifications atomic.Int64
	svc.OnStatusChange(func() {
		notifications.Add(1)
	})

	svc.Start(ctx)
	defer svc.Stop()

	svc.monitor.SetOnline(true)
	require.Eventually(t, func() bool {
		return notifications.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	// Let the reconnect-triggered cycle finish before starting another.
	require.Eventually(t, func() bool {
		return !svc.syncing.Load()
	}, time.Second, 5*time.Millisecond)

	// A manual cycle notifies on start and on finish.
	before := notifications.Load()
	_, err := svc.SyncNow(ctx, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return notifications.Load() >= before+2
	}, time.Second, 5*time.Millisecond)
}
