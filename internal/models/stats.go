package models

// SyncStats holds process-wide sync counters. TotalSynced and TotalFailed
// are monotonically increasing; AverageSyncDuration is a running average of
// sync cycle durations in milliseconds.
type SyncStats struct {
	TotalSynced         int64   `json:"total_synced"`
	TotalFailed         int64   `json:"total_failed"`
	LastSyncTime        int64   `json:"last_sync_time"`         // epoch millis of the last cycle; 0 = never synced
	LastSuccessTime     int64   `json:"last_success_time"`      // epoch millis of the last cycle that synced at least one item
	AverageSyncDuration float64 `json:"average_sync_duration"`  // running average, milliseconds
}

// SyncStatus describes the engine's externally visible state.
type SyncStatus string

// Sync statuses
const (
	SyncStatusIdle     SyncStatus = "idle"
	SyncStatusSyncing  SyncStatus = "syncing"
	SyncStatusSuccess  SyncStatus = "success"
	SyncStatusError    SyncStatus = "error"
	SyncStatusConflict SyncStatus = "conflict"
)
