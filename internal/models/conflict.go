package models

import "encoding/json"

// Resolution describes how a conflict was settled.
type Resolution string

// Conflict resolutions
const (
	ResolutionClient Resolution = "client"
	ResolutionServer Resolution = "server"
	ResolutionMerged Resolution = "merged"
)

// Strategy is the policy governing how detected conflicts are settled.
type Strategy string

// Conflict resolution strategies
const (
	StrategyClientWins Strategy = "client_wins"
	StrategyServerWins Strategy = "server_wins"
	StrategyManual     Strategy = "manual"
	StrategyMerge      Strategy = "merge"
)

// ValidStrategy reports whether s is one of the known strategies.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyClientWins, StrategyServerWins, StrategyManual, StrategyMerge:
		return true
	}
	return false
}

// SyncConflict records a detected divergence between a client's intended
// write and the server's current state for the same record. A conflict is
// linked 1:1 to the queued item that triggered it and stays unresolved
// until a resolution is recorded.
type SyncConflict struct {
	ClientData     map[string]json.RawMessage `json:"client_data"`     // ClientData fields the client intended to write
	ServerData     map[string]json.RawMessage `json:"server_data"`     // ServerData current server snapshot of the record
	ID             string                     `json:"id"`              // ID unique identifier (UUID)
	ItemID         string                     `json:"item_id"`         // ItemID id of the queued item that triggered the conflict
	Type           string                     `json:"type"`            // Type payload kind of the originating item
	TargetID       string                     `json:"target_id"`       // TargetID id of the disputed record
	Resolution     Resolution                 `json:"resolution,omitempty"` // Resolution set once resolved
	ConflictFields []string                   `json:"conflict_fields"` // ConflictFields field names whose values diverge
	ServerVersion  int64                      `json:"server_version"`  // ServerVersion server record version at detection time
	DetectedAt     int64                      `json:"detected_at"`     // DetectedAt epoch millis
	Resolved       bool                       `json:"resolved"`        // Resolved true once a resolution has been recorded
}
