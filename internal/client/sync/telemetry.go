package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

// telemetry accumulates sync statistics and persists them after every
// cycle.
type telemetry struct {
	store  storage.StatsStorage
	logger *slog.Logger

	mu    sync.Mutex
	stats models.SyncStats
}

func newTelemetry(ctx context.Context, store storage.StatsStorage, logger *slog.Logger) (*telemetry, error) {
	stats, err := store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &telemetry{store: store, logger: logger, stats: *stats}, nil
}

func (t *telemetry) recordItemSynced() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalSynced++
}

func (t *telemetry) recordItemFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalFailed++
}

// recordCycle updates the cycle timestamps and running duration
// average, then persists the snapshot.
func (t *telemetry) recordCycle(ctx context.Context, started time.Time, succeeded bool) {
	t.mu.Lock()

	duration := float64(time.Since(started).Milliseconds())
	t.stats.LastSyncTime = started.UnixMilli()
	if succeeded {
		t.stats.LastSuccessTime = started.UnixMilli()
	}
	if t.stats.AverageSyncDuration == 0 {
		t.stats.AverageSyncDuration = duration
	} else {
		t.stats.AverageSyncDuration = (t.stats.AverageSyncDuration + duration) / 2
	}
	snapshot := t.stats

	t.mu.Unlock()

	if err := t.store.SaveStats(ctx, &snapshot); err != nil {
		t.logger.Warn("failed to persist sync stats", "error", err)
	}
}

func (t *telemetry) snapshot() models.SyncStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *telemetry) reset(ctx context.Context) error {
	t.mu.Lock()
	t.stats = models.SyncStats{}
	t.mu.Unlock()
	return t.store.ResetStats(ctx)
}
