package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/offsync/offsync/internal/client/netmon"
	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

// ErrMergedDataRequired is returned when a merge resolution is applied
// without the merged field set.
var ErrMergedDataRequired = errors.New("merged resolution requires merged data")

// Status is a point-in-time snapshot of the sync subsystem.
type Status struct {
	Counts        map[models.ItemStatus]int
	Stats         models.SyncStats
	Phase         models.SyncStatus
	OpenConflicts int
	Online        bool
	Syncing       bool
}

// Storage bundles the client-side stores the service needs.
type Storage interface {
	storage.QueueStorage
	storage.ConflictStorage
	storage.StatsStorage
	storage.CacheStorage
}

// Service is the client's offline write queue. Writes are accepted at
// any time and drained to the server whenever it is reachable.
type Service struct {
	store   Storage
	engine  *engine
	monitor *netmon.Monitor
	stats   *telemetry
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	syncing atomic.Bool

	mu             sync.Mutex
	subscriber     int
	statusListener func()
	retryTimer     *time.Timer
	baseCtx        context.Context
	stop           context.CancelFunc
}

// NewService wires the sync engine to its stores and the network
// monitor.
func NewService(
	ctx context.Context,
	store Storage,
	applier RemoteApplier,
	monitor *netmon.Monitor,
	cfg Config,
	logger *slog.Logger,
) (*Service, error) {
	stats, err := newTelemetry(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync stats: %w", err)
	}

	s := &Service{
		store:      store,
		monitor:    monitor,
		stats:      stats,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		subscriber: -1,
	}
	s.engine = newEngine(store, store, applier, stats, cfg, logger)

	return s, nil
}

// RegisterMerger overrides the merge strategy for one data kind.
func (s *Service) RegisterMerger(kind string, merger Merger) {
	s.engine.resolver.RegisterMerger(kind, merger)
}

// Start subscribes to connectivity changes and begins auto-syncing.
// A reconnect triggers a sync once the connection holds through the
// debounce window; going offline cuts the running cycle short.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.baseCtx, s.stop = context.WithCancel(ctx)
	s.subscriber = s.monitor.Subscribe(func(online bool) {
		s.notifyStatus()
		if !online {
			s.engine.abort()
			return
		}
		s.logger.Info("back online, starting sync")
		s.autoSync()
	})
	s.mu.Unlock()

	s.monitor.Start(ctx)
}

// OnStatusChange registers fn to run whenever connectivity flips or a
// sync cycle starts or finishes. fn runs on its own goroutine; callers
// typically re-read Status from it.
func (s *Service) OnStatusChange(fn func()) {
	s.mu.Lock()
	s.statusListener = fn
	s.mu.Unlock()
}

func (s *Service) notifyStatus() {
	s.mu.Lock()
	fn := s.statusListener
	s.mu.Unlock()
	if fn != nil {
		go fn()
	}
}

// Stop halts auto-syncing. Queue contents are untouched.
func (s *Service) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	subscriber := s.subscriber
	s.subscriber = -1
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()

	if subscriber >= 0 {
		s.monitor.Unsubscribe(subscriber)
	}
	s.monitor.Stop()

	if stop != nil {
		stop()
	}
}

// Enqueue accepts a write into the durable queue. The returned item
// carries the generated ID.
func (s *Service) Enqueue(ctx context.Context, payload models.Payload) (*models.QueuedItem, error) {
	if payload.Kind == "" {
		return nil, errors.New("payload kind is required")
	}
	if payload.TargetID == "" {
		return nil, errors.New("payload target id is required")
	}

	item := &models.QueuedItem{
		ID:        uuid.NewString(),
		Type:      payload.Kind,
		Payload:   payload.Clone(),
		Status:    models.StatusPending,
		Timestamp: s.now().UnixMilli(),
	}

	if err := s.store.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to enqueue item: %w", err)
	}

	s.logger.Debug("item enqueued",
		"item_id", item.ID,
		"kind", item.Type,
		"target_id", payload.TargetID,
	)

	// Drain immediately when the server is reachable.
	if s.monitor.IsOnline() {
		s.autoSync()
	}

	return item, nil
}

// SyncNow runs one sync cycle. onProgress may be nil.
func (s *Service) SyncNow(ctx context.Context, onProgress ProgressFunc) (*CycleResult, error) {
	s.syncing.Store(true)
	s.notifyStatus()
	defer func() {
		s.syncing.Store(false)
		s.notifyStatus()
	}()

	result, err := s.engine.RunCycle(ctx, onProgress)
	if err != nil {
		return nil, err
	}

	s.scheduleRetry(ctx)

	return result, nil
}

// autoSync runs a cycle in the background, ignoring the overlap error.
func (s *Service) autoSync() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		if _, err := s.SyncNow(ctx, nil); err != nil && !errors.Is(err, ErrCycleInProgress) {
			s.logger.Error("background sync failed", "error", err)
		}
	}()
}

// scheduleRetry arms a timer for the earliest scheduled retry so failed
// items are picked up without waiting for the next manual sync.
func (s *Service) scheduleRetry(ctx context.Context) {
	items, err := s.store.ListPending(ctx)
	if err != nil {
		s.logger.Error("failed to inspect queue for retry scheduling", "error", err)
		return
	}

	now := s.now()
	var earliest time.Time
	for _, item := range items {
		if item.Status != models.StatusFailed || item.NextRetryAt == 0 {
			continue
		}
		at := time.UnixMilli(item.NextRetryAt)
		if at.Before(now) {
			at = now
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = at
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if earliest.IsZero() || s.stop == nil {
		return
	}

	delay := time.Until(earliest)
	if delay < 0 {
		delay = 0
	}
	s.retryTimer = time.AfterFunc(delay, func() {
		if s.monitor.IsOnline() {
			s.autoSync()
		}
	})
}

// RetryItem puts a failed item back into contention immediately, with a
// fresh retry budget.
func (s *Service) RetryItem(ctx context.Context, id string) error {
	_, err := s.store.Transition(ctx, id, func(it *models.QueuedItem) error {
		if it.Status != models.StatusFailed {
			return fmt.Errorf("item %s is %s, only failed items can be retried", id, it.Status)
		}
		it.Status = models.StatusPending
		it.Retries = 0
		it.NextRetryAt = 0
		it.Error = ""
		return nil
	})
	if err != nil {
		return err
	}

	if s.monitor.IsOnline() {
		s.autoSync()
	}
	return nil
}

// RemoveFromQueue drops an item and any conflicts attached to it.
func (s *Service) RemoveFromQueue(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	return s.store.RemoveConflictsByItem(ctx, id)
}

// ClearQueue drops every queued item and every conflict record, and
// resets the accumulated sync statistics.
func (s *Service) ClearQueue(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if err := s.store.ClearConflicts(ctx); err != nil {
		return err
	}
	return s.stats.reset(ctx)
}

// ClearFailedItems removes all failed items and returns how many were
// dropped.
func (s *Service) ClearFailedItems(ctx context.Context) (int, error) {
	return s.store.RemoveByStatus(ctx, models.StatusFailed)
}

// ListQueue returns the full queue in enqueue order.
func (s *Service) ListQueue(ctx context.Context) ([]*models.QueuedItem, error) {
	return s.store.List(ctx)
}

// GetItem returns one queued item.
func (s *Service) GetItem(ctx context.Context, id string) (*models.QueuedItem, error) {
	return s.store.Get(ctx, id)
}

// ListConflicts returns all recorded conflicts, oldest first.
func (s *Service) ListConflicts(ctx context.Context) ([]*models.SyncConflict, error) {
	return s.store.ListConflicts(ctx)
}

// ResolveConflict applies a manual resolution to a parked conflict.
// Resolving the same conflict twice returns ErrConflictResolved and
// changes nothing.
func (s *Service) ResolveConflict(
	ctx context.Context,
	conflictID string,
	resolution models.Resolution,
	mergedData map[string]json.RawMessage,
) error {
	conflict, err := s.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}

	if resolution == models.ResolutionMerged && mergedData == nil {
		return ErrMergedDataRequired
	}

	// Marking first makes the whole operation idempotent.
	if err := s.store.MarkResolved(ctx, conflictID, resolution); err != nil {
		return err
	}

	switch resolution {
	case models.ResolutionClient, models.ResolutionMerged:
		_, err := s.store.Transition(ctx, conflict.ItemID, func(it *models.QueuedItem) error {
			it.Status = models.StatusPending
			it.Retries = 0
			it.NextRetryAt = 0
			it.Error = ""
			it.Payload.BaseVersion = conflict.ServerVersion
			if resolution == models.ResolutionMerged {
				it.Payload.Fields = mergedData
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to requeue conflicted item: %w", err)
		}
		if s.monitor.IsOnline() {
			s.autoSync()
		}

	case models.ResolutionServer:
		if err := s.store.Remove(ctx, conflict.ItemID); err != nil &&
			!errors.Is(err, storage.ErrItemNotFound) {
			return fmt.Errorf("failed to discard conflicted item: %w", err)
		}

	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}

	s.logger.Info("conflict resolved",
		"conflict_id", conflictID,
		"item_id", conflict.ItemID,
		"resolution", resolution,
	)
	return nil
}

// Status reports queue composition, connectivity and stats.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.store.CountOpenConflicts(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{
		Counts:        counts,
		Stats:         s.stats.snapshot(),
		OpenConflicts: open,
		Online:        s.monitor.IsOnline(),
		Syncing:       s.syncing.Load(),
	}
	status.Phase = phase(status)
	return status, nil
}

// phase condenses the snapshot into the one-word state a status
// indicator shows. Conflicts and failures take precedence over the
// outcome of the last cycle.
func phase(status *Status) models.SyncStatus {
	switch {
	case status.Syncing:
		return models.SyncStatusSyncing
	case status.OpenConflicts > 0:
		return models.SyncStatusConflict
	case status.Counts[models.StatusFailed] > 0:
		return models.SyncStatusError
	case status.Stats.LastSyncTime > 0:
		return models.SyncStatusSuccess
	default:
		return models.SyncStatusIdle
	}
}

// ResetStats clears the accumulated sync statistics.
func (s *Service) ResetStats(ctx context.Context) error {
	return s.stats.reset(ctx)
}

// CacheDocument stores a document for offline reading.
func (s *Service) CacheDocument(ctx context.Context, doc *models.CachedDocument) error {
	if doc.CachedAt == 0 {
		doc.CachedAt = s.now().UnixMilli()
	}
	if doc.Size == 0 {
		doc.Size = int64(len(doc.Data))
	}
	return s.store.PutDocument(ctx, doc)
}

// GetCachedDocument retrieves a document from the offline cache.
func (s *Service) GetCachedDocument(ctx context.Context, id string) (*models.CachedDocument, error) {
	return s.store.GetDocument(ctx, id)
}

// ListCachedDocuments lists the offline cache, newest first.
func (s *Service) ListCachedDocuments(ctx context.Context) ([]*models.CachedDocument, error) {
	return s.store.ListDocuments(ctx)
}

// RemoveCachedDocument evicts one document from the offline cache.
func (s *Service) RemoveCachedDocument(ctx context.Context, id string) error {
	return s.store.RemoveDocument(ctx, id)
}

// GetStorageUsage reports offline cache occupancy.
func (s *Service) GetStorageUsage(ctx context.Context) (used, quota int64, err error) {
	return s.store.Usage(ctx)
}

// ClearCache evicts the whole offline cache.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.ClearDocuments(ctx)
}

// IsOnline reports current connectivity.
func (s *Service) IsOnline() bool {
	return s.monitor.IsOnline()
}
