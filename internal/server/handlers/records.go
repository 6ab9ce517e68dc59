package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/offsync/offsync/internal/server/storage"
	"github.com/offsync/offsync/pkg/api"
)

// RecordsHandler serves the record apply endpoint: the server side of
// the client's write queue. Every apply carries the record version the
// client based its edit on; an apply against a stale version is refused
// with 409 and the current record, so the client can resolve the
// conflict locally.
type RecordsHandler struct {
	logger  *slog.Logger
	records storage.RecordStorage
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(logger *slog.Logger, records storage.RecordStorage) *RecordsHandler {
	return &RecordsHandler{
		logger:  logger,
		records: records,
	}
}

// Apply handles POST /api/v1/records/apply
func (h *RecordsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode apply request", slog.Any("error", err))
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.TargetID == "" {
		sendError(w, "target_id is required", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		sendError(w, "kind is required", http.StatusBadRequest)
		return
	}
	if len(req.Fields) == 0 {
		sendError(w, "fields must not be empty", http.StatusBadRequest)
		return
	}

	record, err := h.records.GetRecord(ctx, req.TargetID)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		h.applyCreate(w, r, req)
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to load record", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if req.BaseVersion != record.Version {
		// The record moved since the client's edit. Hand back the
		// current state and let the client sort it out.
		h.logger.InfoContext(ctx, "apply refused, record version moved",
			slog.String("record_id", record.ID),
			slog.Int64("base_version", req.BaseVersion),
			slog.Int64("current_version", record.Version))
		h.sendConflict(w, record)
		return
	}

	h.applyUpdate(w, r, req, record)
}

// applyCreate inserts a brand new record. A non-zero base version on a
// missing record means the client edited something that has since been
// deleted; that write cannot be applied.
func (h *RecordsHandler) applyCreate(w http.ResponseWriter, r *http.Request, req api.ApplyRequest) {
	ctx := r.Context()

	if req.BaseVersion != 0 {
		h.logger.WarnContext(ctx, "apply refused, record gone",
			slog.String("record_id", req.TargetID),
			slog.Int64("base_version", req.BaseVersion))
		sendError(w, "record not found", http.StatusNotFound)
		return
	}

	record := &storage.Record{
		ID:     req.TargetID,
		Kind:   req.Kind,
		Fields: req.Fields,
	}

	err := h.records.CreateRecord(ctx, record)
	if errors.Is(err, storage.ErrRecordExists) {
		// Lost a create race. Reload and refuse with the winner.
		h.reloadAndConflict(w, r, req.TargetID)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create record", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "record created",
		slog.String("record_id", record.ID),
		slog.String("kind", record.Kind))

	sendJSON(w, api.ApplyResponse{
		RecordID:   record.ID,
		NewVersion: record.Version,
	}, http.StatusOK)
}

// applyUpdate overlays the mutation's fields on the current record and
// writes it back with a version check.
func (h *RecordsHandler) applyUpdate(w http.ResponseWriter, r *http.Request, req api.ApplyRequest, record *storage.Record) {
	ctx := r.Context()

	merged := make(map[string]json.RawMessage, len(record.Fields)+len(req.Fields))
	for name, value := range record.Fields {
		merged[name] = value
	}
	for name, value := range req.Fields {
		merged[name] = value
	}
	record.Fields = merged

	err := h.records.UpdateRecord(ctx, record, req.BaseVersion)
	if errors.Is(err, storage.ErrVersionMismatch) {
		h.reloadAndConflict(w, r, record.ID)
		return
	}
	if errors.Is(err, storage.ErrRecordNotFound) {
		sendError(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update record", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "record updated",
		slog.String("record_id", record.ID),
		slog.Int64("new_version", record.Version))

	sendJSON(w, api.ApplyResponse{
		RecordID:   record.ID,
		NewVersion: record.Version,
	}, http.StatusOK)
}

// Get handles GET /api/v1/records/{id}
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		sendError(w, "record id is required", http.StatusBadRequest)
		return
	}

	record, err := h.records.GetRecord(ctx, id)
	if errors.Is(err, storage.ErrRecordNotFound) {
		sendError(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load record", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, toAPIRecord(record), http.StatusOK)
}

// List handles GET /api/v1/records with an optional ?kind= filter
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.records.ListRecords(ctx, r.URL.Query().Get("kind"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list records", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]api.Record, 0, len(records))
	for _, record := range records {
		out = append(out, toAPIRecord(record))
	}

	sendJSON(w, out, http.StatusOK)
}

func (h *RecordsHandler) reloadAndConflict(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	record, err := h.records.GetRecord(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to reload record after conflict", slog.Any("error", err))
		sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.sendConflict(w, record)
}

func (h *RecordsHandler) sendConflict(w http.ResponseWriter, record *storage.Record) {
	sendJSON(w, api.ConflictResponse{Record: toAPIRecord(record)}, http.StatusConflict)
}

func toAPIRecord(record *storage.Record) api.Record {
	return api.Record{
		ID:        record.ID,
		Kind:      record.Kind,
		Fields:    record.Fields,
		Version:   record.Version,
		UpdatedAt: record.UpdatedAt,
	}
}
