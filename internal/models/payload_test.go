package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotePayload(t *testing.T) {
	note := NotePayload{
		SubjectID: "member-1",
		AuthorID:  "leader-1",
		Category:  "visit",
		Date:      "2025-03-01",
		Note:      "home visit",
		GroupID:   "group-1",
	}

	payload, err := NewNotePayload("member-1", 3, note)
	require.NoError(t, err)

	assert.Equal(t, KindNote, payload.Kind)
	assert.Equal(t, "member-1", payload.TargetID)
	assert.Equal(t, int64(3), payload.BaseVersion)
	assert.ElementsMatch(t,
		[]string{"subject_id", "author_id", "category", "date", "note", "group_id"},
		payload.FieldNames())

	decoded, err := payload.DecodeNote()
	require.NoError(t, err)
	assert.Equal(t, note, decoded)
}

func TestDecodeNote_WrongKind(t *testing.T) {
	payload, err := NewReportPayload("member-2", 0, ReportPayload{SubjectID: "member-2"})
	require.NoError(t, err)

	_, err = payload.DecodeNote()
	require.Error(t, err)
}

func TestPayload_FieldEquals(t *testing.T) {
	payload := Payload{
		Kind:     "custom",
		TargetID: "rec-1",
		Fields: map[string]json.RawMessage{
			"status": json.RawMessage(`"open"`),
			"count":  json.RawMessage(`5`),
		},
	}

	assert.True(t, payload.FieldEquals("status", json.RawMessage(`"open"`)))
	assert.True(t, payload.FieldEquals("count", json.RawMessage(` 5 `)), "whitespace must not matter")
	assert.False(t, payload.FieldEquals("status", json.RawMessage(`"closed"`)))
	assert.False(t, payload.FieldEquals("missing", json.RawMessage(`1`)))
}

func TestPayload_Clone(t *testing.T) {
	payload := Payload{
		Kind:     "custom",
		TargetID: "rec-1",
		Fields:   map[string]json.RawMessage{"a": json.RawMessage(`1`)},
	}

	clone := payload.Clone()
	clone.Fields["a"] = json.RawMessage(`2`)

	assert.Equal(t, json.RawMessage(`1`), payload.Fields["a"])
}

func TestQueuedItem_Retriable(t *testing.T) {
	nowMillis := int64(1_000_000)
	now := time.UnixMilli(nowMillis)

	tests := []struct {
		name string
		item QueuedItem
		want bool
	}{
		{
			name: "pending is always retriable",
			item: QueuedItem{Status: StatusPending},
			want: true,
		},
		{
			name: "failed with due retry",
			item: QueuedItem{Status: StatusFailed, NextRetryAt: nowMillis - 1},
			want: true,
		},
		{
			name: "failed with future retry",
			item: QueuedItem{Status: StatusFailed, NextRetryAt: nowMillis + 1},
			want: false,
		},
		{
			name: "failed terminally (no schedule)",
			item: QueuedItem{Status: StatusFailed, NextRetryAt: 0},
			want: false,
		},
		{
			name: "conflict is never retriable",
			item: QueuedItem{Status: StatusConflict, NextRetryAt: nowMillis - 1},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Retriable(now))
		})
	}
}
