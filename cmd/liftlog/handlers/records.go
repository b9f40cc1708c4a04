package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kbradley/liftlog/internal/db"
	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/syncer"
)

// RecordHandler exposes generic CRUD over the synced entity collections.
// Writes go to the local store first; the orchestrator pushes them to the
// cloud in the background when one is wired.
type RecordHandler struct {
	store db.Store
	orch  *syncer.Orchestrator
}

// NewRecordHandler creates a RecordHandler. orch may be nil in tests.
func NewRecordHandler(store db.Store, orch *syncer.Orchestrator) *RecordHandler {
	return &RecordHandler{store: store, orch: orch}
}

// entityType resolves the {type} path segment to a synced collection.
func entityType(r *http.Request) (models.EntityType, bool) {
	name := r.PathValue("type")
	for _, t := range models.SyncedTypes() {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// Collection routes GET/POST /records/{type}.
func (h *RecordHandler) Collection(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		http.Error(w, "Unknown collection", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, t)
	case http.MethodPost:
		h.create(w, r, t)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Item routes GET/PUT/DELETE /records/{type}/{id}.
func (h *RecordHandler) Item(w http.ResponseWriter, r *http.Request) {
	t, ok := entityType(r)
	if !ok {
		http.Error(w, "Unknown collection", http.StatusNotFound)
		return
	}
	id := models.UUID(r.PathValue("id"))
	if id == "" {
		http.Error(w, "Record id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, t, id)
	case http.MethodPut:
		h.update(w, r, t, id)
	case http.MethodDelete:
		h.remove(w, t, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RecordHandler) list(w http.ResponseWriter, t models.EntityType) {
	records, err := h.store.GetActive(t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"type":    string(t),
		"count":   len(records),
		"records": records,
	})
}

func (h *RecordHandler) create(w http.ResponseWriter, r *http.Request, t models.EntityType) {
	rec, err := h.decodeBody(r, t)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.store.Save(rec); err != nil {
		writeError(w, err)
		return
	}
	h.pushAsync(t, rec.Meta().ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (h *RecordHandler) get(w http.ResponseWriter, t models.EntityType, id models.UUID) {
	rec, err := h.store.Get(t, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) update(w http.ResponseWriter, r *http.Request, t models.EntityType, id models.UUID) {
	if _, err := h.store.Get(t, id); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.decodeBody(r, t)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rec.Meta().ID = id
	if err := h.store.Save(rec); err != nil {
		writeError(w, err)
		return
	}
	h.pushAsync(t, id)
	writeJSON(w, http.StatusOK, rec)
}

// remove soft-deletes a record. The tombstone propagates to the cloud on
// the next sync cycle, or immediately via the async push below.
func (h *RecordHandler) remove(w http.ResponseWriter, t models.EntityType, id models.UUID) {
	if err := h.store.SoftDelete(t, id); err != nil {
		writeError(w, err)
		return
	}
	h.pushAsync(t, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "deleted",
		"id":     string(id),
	})
}

func (h *RecordHandler) decodeBody(r *http.Request, t models.EntityType) (models.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "failed to read request body", err)
	}
	return models.Decode(t, body)
}

// pushAsync kicks off a fire-and-forget upload of one record.
func (h *RecordHandler) pushAsync(t models.EntityType, id models.UUID) {
	if h.orch == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		h.orch.UploadRecord(ctx, t, id)
	}()
}
