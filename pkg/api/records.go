package api

import (
	"encoding/json"
	"time"
)

// Record is the server-side view of a versioned record.
type Record struct {
	Fields    map[string]json.RawMessage `json:"fields"`
	ID        string                     `json:"id"`
	Kind      string                     `json:"kind"`
	Version   int64                      `json:"version"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// ApplyRequest asks the server to apply a single queued mutation.
// BaseVersion is the record version the client based its edit on; zero
// means the client believes the record does not exist yet.
type ApplyRequest struct {
	Fields      map[string]json.RawMessage `json:"fields"`
	ItemID      string                     `json:"item_id"`
	Kind        string                     `json:"kind"`
	TargetID    string                     `json:"target_id"`
	BaseVersion int64                      `json:"base_version"`
	Timestamp   int64                      `json:"timestamp"` // client enqueue time, epoch millis
}

// ApplyResponse reports a successful apply.
type ApplyResponse struct {
	RecordID   string `json:"record_id"`
	NewVersion int64  `json:"new_version"`
}

// ConflictResponse is the body of a 409 response: the server's current
// version of the disputed record, so the client can detect and resolve
// the conflict locally.
type ConflictResponse struct {
	Record Record `json:"record"`
}
