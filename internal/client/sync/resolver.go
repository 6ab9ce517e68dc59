package sync

import (
	"encoding/json"
	"fmt"

	"github.com/offsync/offsync/internal/models"
)

// Merger combines the client's and server's field sets for one data
// kind. It returns the merged fields that should win.
type Merger func(client, server map[string]json.RawMessage) map[string]json.RawMessage

// defaultMerge takes the union of both field sets. On overlap the
// client's value wins, since it represents the user's latest intent.
func defaultMerge(client, server map[string]json.RawMessage) map[string]json.RawMessage {
	merged := make(map[string]json.RawMessage, len(client)+len(server))
	for name, value := range server {
		merged[name] = append(json.RawMessage(nil), value...)
	}
	for name, value := range client {
		merged[name] = append(json.RawMessage(nil), value...)
	}
	return merged
}

// resolver decides what happens to a conflicted item per the configured
// strategy.
type resolver struct {
	strategy models.Strategy
	mergers  map[string]Merger
}

func newResolver(strategy models.Strategy) *resolver {
	return &resolver{
		strategy: strategy,
		mergers:  make(map[string]Merger),
	}
}

// RegisterMerger overrides the merge behavior for one data kind.
func (r *resolver) RegisterMerger(kind string, merger Merger) {
	r.mergers[kind] = merger
}

// resolution is the resolver's verdict on a conflicted item.
type resolution struct {
	// Fields replaces the item's payload when Requeue is set and Fields
	// is non-nil.
	Fields map[string]json.RawMessage

	// Outcome records which side won.
	Outcome models.Resolution

	// Requeue re-stamps the item against the server version and sends
	// it again. When false with Manual unset, the item is discarded.
	Requeue bool

	// Manual parks the item in the conflict state for the user.
	Manual bool
}

// resolve applies the configured strategy to a detected conflict.
func (r *resolver) resolve(conflict *models.SyncConflict) (resolution, error) {
	switch r.strategy {
	case models.StrategyClientWins:
		return resolution{Outcome: models.ResolutionClient, Requeue: true}, nil

	case models.StrategyServerWins:
		return resolution{Outcome: models.ResolutionServer}, nil

	case models.StrategyMerge:
		merger := r.mergers[conflict.Type]
		if merger == nil {
			merger = defaultMerge
		}
		merged := merger(conflict.ClientData, conflict.ServerData)
		return resolution{
			Outcome: models.ResolutionMerged,
			Requeue: true,
			Fields:  merged,
		}, nil

	case models.StrategyManual:
		return resolution{Manual: true}, nil

	default:
		return resolution{}, fmt.Errorf("unknown conflict strategy %q", r.strategy)
	}
}
