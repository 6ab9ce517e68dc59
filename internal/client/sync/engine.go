package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

// ErrCycleInProgress is returned when RunCycle is called while another
// cycle is still running.
var ErrCycleInProgress = errors.New("sync cycle already in progress")

// ApplyResult is the server's answer to a successful apply.
type ApplyResult struct {
	// NewVersion is the record version after the write.
	NewVersion int64
}

//go:generate moq -out applier_mock.go . RemoteApplier

// RemoteApplier sends queued writes to the server.
//
// Apply returns a *NetworkError when the server is unreachable, a
// *ConflictError when the record version moved past the item's base
// version, and a *RemoteRejectedError when the server refuses the write
// outright. Any other error is treated as transient.
type RemoteApplier interface {
	Apply(ctx context.Context, item *models.QueuedItem) (*ApplyResult, error)
}

// ProgressFunc is invoked after each processed item with the number of
// items handled so far and the cycle total.
type ProgressFunc func(done, total int)

// CycleResult summarizes one sync cycle.
type CycleResult struct {
	Total     int
	Synced    int
	Failed    int
	Conflicts int
	Discarded int
	Skipped   int

	// Aborted is set when a network error cut the cycle short.
	Aborted bool
}

// engine drains the write queue against a RemoteApplier, one item at a
// time in enqueue order.
type engine struct {
	queue     storage.QueueStorage
	conflicts storage.ConflictStorage
	applier   RemoteApplier
	resolver  *resolver
	stats     *telemetry
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	running chan struct{}

	mu          sync.Mutex
	cancelCycle context.CancelFunc
}

func newEngine(
	queue storage.QueueStorage,
	conflicts storage.ConflictStorage,
	applier RemoteApplier,
	stats *telemetry,
	cfg Config,
	logger *slog.Logger,
) *engine {
	running := make(chan struct{}, 1)
	running <- struct{}{}
	return &engine{
		queue:     queue,
		conflicts: conflicts,
		applier:   applier,
		resolver:  newResolver(cfg.Strategy),
		stats:     stats,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		running:   running,
	}
}

// RunCycle processes every eligible queued item once. At most one cycle
// runs at a time.
func (e *engine) RunCycle(ctx context.Context, onProgress ProgressFunc) (*CycleResult, error) {
	select {
	case <-e.running:
	default:
		return nil, ErrCycleInProgress
	}
	defer func() { e.running <- struct{}{} }()

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancelCycle = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.cancelCycle = nil
		e.mu.Unlock()
		cancel()
	}()

	started := e.now()

	items, err := e.queue.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	eligible := items[:0]
	for _, item := range items {
		if item.Retriable(now) {
			eligible = append(eligible, item)
		}
	}

	result := &CycleResult{Total: len(eligible)}
	if len(eligible) == 0 {
		return result, nil
	}

	e.logger.Info("sync cycle started", "items", len(eligible))

	// Targets that failed this cycle. Later writes to the same record
	// must wait so they cannot land out of order.
	blocked := make(map[string]struct{})

	for i, item := range eligible {
		if err := ctx.Err(); err != nil {
			result.Aborted = true
			break
		}

		if _, found := blocked[item.Payload.TargetID]; found {
			result.Skipped++
			e.logger.Debug("item skipped, earlier write for target unresolved",
				"item_id", item.ID, "target_id", item.Payload.TargetID)
			continue
		}

		aborted := e.processItem(ctx, item, result, blocked)

		if onProgress != nil {
			onProgress(i+1, len(eligible))
		}

		if aborted {
			result.Aborted = true
			break
		}
	}

	e.stats.recordCycle(ctx, started, !result.Aborted && result.Failed == 0)

	e.logger.Info("sync cycle finished",
		"synced", result.Synced,
		"failed", result.Failed,
		"conflicts", result.Conflicts,
		"skipped", result.Skipped,
		"aborted", result.Aborted,
	)

	return result, nil
}

// abort cancels the cycle in flight, if any. Items already delivered
// stay delivered; the current one is restored and the rest stay queued.
func (e *engine) abort() {
	e.mu.Lock()
	if e.cancelCycle != nil {
		e.cancelCycle()
	}
	e.mu.Unlock()
}

// processItem attempts one item. It returns true when the cycle must
// abort because the server became unreachable.
func (e *engine) processItem(
	ctx context.Context,
	item *models.QueuedItem,
	result *CycleResult,
	blocked map[string]struct{},
) bool {
	current, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
		it.Status = models.StatusSyncing
		it.Error = ""
		return nil
	})
	if err != nil {
		// Removed out from under the cycle. Not a failure.
		if errors.Is(err, storage.ErrItemNotFound) {
			result.Skipped++
			return false
		}
		e.logger.Error("failed to mark item syncing", "item_id", item.ID, "error", err)
		result.Failed++
		blocked[item.Payload.TargetID] = struct{}{}
		return false
	}

	// A false-positive version refusal fast-forwards the base version
	// and gets one more attempt within the cycle.
	for attempt := 0; ; attempt++ {
		applyCtx, cancel := context.WithTimeout(ctx, e.cfg.ItemTimeout)
		applied, err := e.applier.Apply(applyCtx, current)
		cancel()

		if err == nil {
			return e.finishSynced(ctx, current, applied, result)
		}

		if ctx.Err() != nil {
			// The cycle was cancelled mid-flight, usually because the
			// connection dropped. Put the item back without charging a
			// retry.
			e.restorePending(ctx, current)
			return true
		}

		var netErr *NetworkError
		if errors.As(err, &netErr) {
			// Leave the item as it was. Reachability is not the item's
			// fault, so no retry is charged.
			e.restorePending(ctx, current)
			e.logger.Warn("sync aborted, server unreachable", "error", err)
			return true
		}

		var conflictErr *ConflictError
		if errors.As(err, &conflictErr) {
			conflict := detectConflict(current, conflictErr, e.now())
			if conflict == nil && attempt == 0 {
				// Same values on both sides. Adopt the server version
				// and try once more.
				current, err = e.queue.Transition(ctx, current.ID, func(it *models.QueuedItem) error {
					it.Payload.BaseVersion = conflictErr.ServerVersion
					return nil
				})
				if err != nil {
					e.logger.Error("failed to fast-forward item", "item_id", item.ID, "error", err)
					result.Failed++
					blocked[item.Payload.TargetID] = struct{}{}
					return false
				}
				continue
			}
			if conflict == nil {
				// Second refusal in a row. Treat as transient and let
				// backoff spread out the next attempt.
				e.failItem(ctx, current, err, result, blocked)
				return false
			}
			e.handleConflict(ctx, current, conflict, result, blocked)
			return false
		}

		var rejectedErr *RemoteRejectedError
		if errors.As(err, &rejectedErr) {
			e.failTerminal(ctx, current, err, result, blocked)
			return false
		}

		// Timeouts and other transport hiccups are transient.
		e.failItem(ctx, current, err, result, blocked)
		return false
	}
}

// finishSynced removes a delivered item and any conflicts attached to it.
func (e *engine) finishSynced(
	ctx context.Context,
	item *models.QueuedItem,
	applied *ApplyResult,
	result *CycleResult,
) bool {
	if err := e.queue.Remove(ctx, item.ID); err != nil && !errors.Is(err, storage.ErrItemNotFound) {
		e.logger.Error("failed to remove synced item", "item_id", item.ID, "error", err)
	}
	if err := e.conflicts.RemoveConflictsByItem(ctx, item.ID); err != nil {
		e.logger.Error("failed to drop conflicts for synced item", "item_id", item.ID, "error", err)
	}

	result.Synced++
	e.stats.recordItemSynced()
	e.logger.Debug("item synced",
		"item_id", item.ID,
		"target_id", item.Payload.TargetID,
		"new_version", applied.NewVersion,
	)
	return false
}

// failItem charges a retry and schedules the next attempt, or goes
// terminal once the retry ceiling is reached.
func (e *engine) failItem(
	ctx context.Context,
	item *models.QueuedItem,
	cause error,
	result *CycleResult,
	blocked map[string]struct{},
) {
	_, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
		it.Status = models.StatusFailed
		it.Retries++
		it.Error = cause.Error()
		if it.Retries >= e.cfg.MaxRetries {
			// Out of retries. NextRetryAt zero means manual-only.
			it.NextRetryAt = 0
		} else {
			it.NextRetryAt = e.now().Add(nextDelay(e.cfg, it.Retries)).UnixMilli()
		}
		return nil
	})
	if err != nil {
		e.logger.Error("failed to record item failure", "item_id", item.ID, "error", err)
	}

	result.Failed++
	e.stats.recordItemFailed()
	blocked[item.Payload.TargetID] = struct{}{}
	e.logger.Warn("item failed", "item_id", item.ID, "error", cause)
}

// failTerminal parks an item that the server refused outright.
func (e *engine) failTerminal(
	ctx context.Context,
	item *models.QueuedItem,
	cause error,
	result *CycleResult,
	blocked map[string]struct{},
) {
	_, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
		it.Status = models.StatusFailed
		it.Retries++
		it.NextRetryAt = 0
		it.Error = cause.Error()
		return nil
	})
	if err != nil {
		e.logger.Error("failed to record item rejection", "item_id", item.ID, "error", err)
	}

	result.Failed++
	e.stats.recordItemFailed()
	blocked[item.Payload.TargetID] = struct{}{}
	e.logger.Warn("item rejected by server", "item_id", item.ID, "error", cause)
}

// handleConflict applies the configured strategy to a real divergence.
func (e *engine) handleConflict(
	ctx context.Context,
	item *models.QueuedItem,
	conflict *models.SyncConflict,
	result *CycleResult,
	blocked map[string]struct{},
) {
	verdict, err := e.resolver.resolve(conflict)
	if err != nil {
		e.failItem(ctx, item, err, result, blocked)
		return
	}

	switch {
	case verdict.Manual:
		if err := e.conflicts.SaveConflict(ctx, conflict); err != nil {
			e.logger.Error("failed to save conflict", "item_id", item.ID, "error", err)
		}
		_, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
			it.Status = models.StatusConflict
			it.Error = conflict.ID
			return nil
		})
		if err != nil {
			e.logger.Error("failed to mark item conflicted", "item_id", item.ID, "error", err)
		}
		result.Conflicts++
		blocked[item.Payload.TargetID] = struct{}{}
		e.logger.Info("conflict detected, waiting for manual resolution",
			"item_id", item.ID,
			"target_id", conflict.TargetID,
			"fields", conflict.ConflictFields,
		)

	case verdict.Requeue:
		e.recordResolved(ctx, conflict, verdict.Outcome)
		_, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
			it.Status = models.StatusPending
			it.Retries = 0
			it.NextRetryAt = 0
			it.Error = ""
			it.Payload.BaseVersion = conflict.ServerVersion
			if verdict.Fields != nil {
				it.Payload.Fields = verdict.Fields
			}
			return nil
		})
		if err != nil {
			e.logger.Error("failed to requeue resolved item", "item_id", item.ID, "error", err)
			result.Failed++
			blocked[item.Payload.TargetID] = struct{}{}
			return
		}
		// Later items for this target still wait for the requeued
		// write to land.
		blocked[item.Payload.TargetID] = struct{}{}
		e.logger.Info("conflict auto-resolved",
			"item_id", item.ID,
			"resolution", verdict.Outcome,
		)

	default:
		// Server wins. The local write is discarded.
		e.recordResolved(ctx, conflict, verdict.Outcome)
		if err := e.queue.Remove(ctx, item.ID); err != nil && !errors.Is(err, storage.ErrItemNotFound) {
			e.logger.Error("failed to discard item", "item_id", item.ID, "error", err)
		}
		result.Discarded++
		e.logger.Info("conflict resolved in server's favor, local write discarded",
			"item_id", item.ID,
			"target_id", conflict.TargetID,
		)
	}
}

// recordResolved keeps an auto-resolved conflict visible in the conflict
// history, already marked with the winning side.
func (e *engine) recordResolved(ctx context.Context, conflict *models.SyncConflict, outcome models.Resolution) {
	if err := e.conflicts.SaveConflict(ctx, conflict); err != nil {
		e.logger.Error("failed to save conflict", "item_id", conflict.ItemID, "error", err)
		return
	}
	if err := e.conflicts.MarkResolved(ctx, conflict.ID, outcome); err != nil {
		e.logger.Error("failed to mark conflict resolved", "conflict_id", conflict.ID, "error", err)
	}
}

// restorePending puts an item back the way it was before the aborted
// attempt.
func (e *engine) restorePending(ctx context.Context, item *models.QueuedItem) {
	_, err := e.queue.Transition(ctx, item.ID, func(it *models.QueuedItem) error {
		if it.Status == models.StatusSyncing {
			if it.Retries > 0 {
				it.Status = models.StatusFailed
			} else {
				it.Status = models.StatusPending
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("failed to restore item after aborted cycle", "item_id", item.ID, "error", err)
	}
}
