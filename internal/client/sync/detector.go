package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/offsync/offsync/internal/models"
)

// divergentFields returns the fields the item touches whose values
// differ from the server's current record. Fields the item does not
// touch never count: a concurrent edit to an unrelated field is not a
// conflict.
func divergentFields(payload *models.Payload, serverFields map[string]json.RawMessage) []string {
	var diverged []string
	for _, name := range payload.FieldNames() {
		serverValue, ok := serverFields[name]
		if !ok {
			// Client is adding a new field. The server cannot disagree
			// about a value it does not have.
			continue
		}
		if !payload.FieldEquals(name, serverValue) {
			diverged = append(diverged, name)
		}
	}
	return diverged
}

// detectConflict inspects a version refusal from the server. When the
// item's own fields still match the server, the refusal is a false
// positive and nil is returned: the caller may fast-forward the base
// version and retry. Otherwise a SyncConflict describing the divergence
// is built.
func detectConflict(item *models.QueuedItem, refusal *ConflictError, now time.Time) *models.SyncConflict {
	diverged := divergentFields(&item.Payload, refusal.ServerFields)
	if len(diverged) == 0 {
		return nil
	}

	clientData := make(map[string]json.RawMessage, len(item.Payload.Fields))
	for name, value := range item.Payload.Fields {
		clientData[name] = append(json.RawMessage(nil), value...)
	}
	serverData := make(map[string]json.RawMessage, len(refusal.ServerFields))
	for name, value := range refusal.ServerFields {
		serverData[name] = append(json.RawMessage(nil), value...)
	}

	return &models.SyncConflict{
		ID:             uuid.NewString(),
		ItemID:         item.ID,
		Type:           item.Type,
		TargetID:       item.Payload.TargetID,
		ClientData:     clientData,
		ServerData:     serverData,
		ConflictFields: diverged,
		ServerVersion:  refusal.ServerVersion,
		DetectedAt:     now.UnixMilli(),
	}
}
