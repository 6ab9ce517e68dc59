package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Payload kinds shipped with the engine. The queue itself treats kinds as
// opaque strings, so callers may enqueue their own kinds; typed accessors
// below exist for the built-in ones.
const (
	KindNote   = "note"
	KindReport = "report"
)

// Payload is the mutation body of a queued item together with the
// information needed to detect conflicts later: the id of the record the
// mutation targets and the server version the client based its edit on.
// Fields holds the record fields the mutation touches, keyed by field name,
// with values kept as raw JSON so unknown kinds round-trip unchanged.
type Payload struct {
	Fields      map[string]json.RawMessage `json:"fields"`
	Kind        string                     `json:"kind"`
	TargetID    string                     `json:"target_id"`
	BaseVersion int64                      `json:"base_version"` // server version at enqueue time; 0 = new record
}

// FieldNames returns the names of the fields this mutation touches,
// sorted for deterministic output.
func (p Payload) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldEquals reports whether the payload's value for a field is
// byte-identical (after JSON compaction) to the given raw value.
func (p Payload) FieldEquals(name string, other json.RawMessage) bool {
	mine, ok := p.Fields[name]
	if !ok {
		return false
	}
	return jsonEqual(mine, other)
}

// Clone creates a deep copy of the payload.
func (p Payload) Clone() Payload {
	clone := p
	clone.Fields = make(map[string]json.RawMessage, len(p.Fields))
	for name, value := range p.Fields {
		raw := make(json.RawMessage, len(value))
		copy(raw, value)
		clone.Fields[name] = raw
	}
	return clone
}

// jsonEqual compares two raw JSON values ignoring insignificant whitespace.
func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Compact(&cb, b); err != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// NotePayload is the typed form of a "note" mutation: a dated note written
// about a subject by an author.
type NotePayload struct {
	SubjectID string `json:"subject_id"` // SubjectID id of the person the note is about
	AuthorID  string `json:"author_id"`  // AuthorID id of the person who wrote the note
	Category  string `json:"category"`   // Category free-form note category
	Date      string `json:"date"`       // Date ISO date the note refers to
	Note      string `json:"note"`       // Note the note text
	GroupID   string `json:"group_id"`   // GroupID owning group/tenant id
}

// ReportPayload is the typed form of a "report" mutation: a prioritized
// incident report about a subject.
type ReportPayload struct {
	SubjectID   string `json:"subject_id"`   // SubjectID id of the person the report is about
	Category    string `json:"category"`     // Category report category
	Description string `json:"description"`  // Description report body
	Priority    string `json:"priority"`     // Priority e.g. "low", "high", "urgent"
	SubmittedBy string `json:"submitted_by"` // SubmittedBy id of the reporter
	Status      string `json:"status"`       // Status workflow status of the report
	GroupID     string `json:"group_id"`     // GroupID owning group/tenant id
}

// NewNotePayload builds a Payload for a note mutation targeting the given
// record with the given base version.
func NewNotePayload(targetID string, baseVersion int64, note NotePayload) (Payload, error) {
	return buildPayload(KindNote, targetID, baseVersion, note)
}

// NewReportPayload builds a Payload for a report mutation targeting the
// given record with the given base version.
func NewReportPayload(targetID string, baseVersion int64, report ReportPayload) (Payload, error) {
	return buildPayload(KindReport, targetID, baseVersion, report)
}

// buildPayload flattens a typed payload struct into the generic field map.
func buildPayload(kind, targetID string, baseVersion int64, v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Payload{}, fmt.Errorf("failed to flatten %s payload: %w", kind, err)
	}

	return Payload{
		Kind:        kind,
		TargetID:    targetID,
		BaseVersion: baseVersion,
		Fields:      fields,
	}, nil
}

// DecodeNote reconstructs the typed note from a payload's field map.
// Returns an error if the payload is not of kind "note".
func (p Payload) DecodeNote() (NotePayload, error) {
	var note NotePayload
	if p.Kind != KindNote {
		return note, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindNote)
	}
	if err := decodeFields(p.Fields, &note); err != nil {
		return note, err
	}
	return note, nil
}

// DecodeReport reconstructs the typed report from a payload's field map.
// Returns an error if the payload is not of kind "report".
func (p Payload) DecodeReport() (ReportPayload, error) {
	var report ReportPayload
	if p.Kind != KindReport {
		return report, fmt.Errorf("payload kind is %q, not %q", p.Kind, KindReport)
	}
	if err := decodeFields(p.Fields, &report); err != nil {
		return report, err
	}
	return report, nil
}

func decodeFields(fields map[string]json.RawMessage, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
