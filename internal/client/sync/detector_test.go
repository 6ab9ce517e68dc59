package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offsync/offsync/internal/models"
)

func conflictItem(fields map[string]json.RawMessage) *models.QueuedItem {
	return &models.QueuedItem{
		ID:   "item-1",
		Type: models.KindNote,
		Payload: models.Payload{
			Kind:        models.KindNote,
			TargetID:    "subject-1",
			BaseVersion: 1,
			Fields:      fields,
		},
	}
}

func TestDetectConflict_NoDivergenceIsFalsePositive(t *testing.T) {
	item := conflictItem(map[string]json.RawMessage{
		"note": json.RawMessage(`"same text"`),
	})
	refusal := &ConflictError{
		ServerVersion: 3,
		ServerFields: map[string]json.RawMessage{
			"note":     json.RawMessage(`"same text"`),
			"category": json.RawMessage(`"praise"`),
		},
	}

	assert.Nil(t, detectConflict(item, refusal, time.Now()))
}

func TestDetectConflict_UntouchedFieldsDoNotConflict(t *testing.T) {
	// The server changed "category", but this item only writes "note"
	// with the same value the server already has.
	item := conflictItem(map[string]json.RawMessage{
		"note": json.RawMessage(`"hello"`),
	})
	refusal := &ConflictError{
		ServerVersion: 2,
		ServerFields: map[string]json.RawMessage{
			"note":     json.RawMessage(`"hello"`),
			"category": json.RawMessage(`"changed elsewhere"`),
		},
	}

	assert.Nil(t, detectConflict(item, refusal, time.Now()))
}

func TestDetectConflict_DivergedFieldReported(t *testing.T) {
	item := conflictItem(map[string]json.RawMessage{
		"note":     json.RawMessage(`"client text"`),
		"category": json.RawMessage(`"praise"`),
	})
	refusal := &ConflictError{
		ServerVersion: 5,
		ServerFields: map[string]json.RawMessage{
			"note":     json.RawMessage(`"server text"`),
			"category": json.RawMessage(`"praise"`),
		},
	}

	now := time.Now()
	conflict := detectConflict(item, refusal, now)
	require.NotNil(t, conflict)

	assert.Equal(t, "item-1", conflict.ItemID)
	assert.Equal(t, "subject-1", conflict.TargetID)
	assert.Equal(t, models.KindNote, conflict.Type)
	assert.Equal(t, []string{"note"}, conflict.ConflictFields)
	assert.Equal(t, int64(5), conflict.ServerVersion)
	assert.Equal(t, now.UnixMilli(), conflict.DetectedAt)
	assert.False(t, conflict.Resolved)
	assert.JSONEq(t, `"client text"`, string(conflict.ClientData["note"]))
	assert.JSONEq(t, `"server text"`, string(conflict.ServerData["note"]))
}

func TestDetectConflict_NewFieldOnClientIsNotDivergence(t *testing.T) {
	item := conflictItem(map[string]json.RawMessage{
		"note":  json.RawMessage(`"text"`),
		"extra": json.RawMessage(`"only on client"`),
	})
	refusal := &ConflictError{
		ServerVersion: 2,
		ServerFields: map[string]json.RawMessage{
			"note": json.RawMessage(`"text"`),
		},
	}

	assert.Nil(t, detectConflict(item, refusal, time.Now()))
}

func TestDetectConflict_WhitespaceInsensitive(t *testing.T) {
	item := conflictItem(map[string]json.RawMessage{
		"meta": json.RawMessage(`{"a":1,"b":2}`),
	})
	refusal := &ConflictError{
		ServerVersion: 2,
		ServerFields: map[string]json.RawMessage{
			"meta": json.RawMessage(`{ "a": 1, "b": 2 }`),
		},
	}

	assert.Nil(t, detectConflict(item, refusal, time.Now()))
}
