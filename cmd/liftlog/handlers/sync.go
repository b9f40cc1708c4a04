// Package handlers provides the localhost REST API for the desktop app.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kbradley/liftlog/internal/cloud"
	"github.com/kbradley/liftlog/internal/crypto"
	"github.com/kbradley/liftlog/internal/db"
	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/syncer"
)

// SyncBroadcaster publishes sync lifecycle events to connected clients.
type SyncBroadcaster interface {
	BroadcastSyncStarted()
	BroadcastSyncCompleted(result *syncer.Result, duration time.Duration)
	BroadcastSyncFailed(errorCode string, retryable bool, retryAfter int)
}

// SyncHandler handles sync configuration and trigger endpoints.
type SyncHandler struct {
	store     db.Store
	orch      *syncer.Orchestrator
	userID    string
	machineID string
	hub       SyncBroadcaster
}

// NewSyncHandler creates a SyncHandler. machineID scopes the credential
// encryption key to this installation.
func NewSyncHandler(store db.Store, orch *syncer.Orchestrator, userID, machineID string) *SyncHandler {
	if machineID == "" {
		machineID = "default"
	}
	return &SyncHandler{
		store:     store,
		orch:      orch,
		userID:    userID,
		machineID: machineID,
	}
}

// SetBroadcaster wires the WebSocket hub for sync events.
func (h *SyncHandler) SetBroadcaster(hub SyncBroadcaster) {
	h.hub = hub
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrInvalid, apperrors.ErrValidation:
		status = http.StatusBadRequest
	case apperrors.ErrSyncInProgress:
		status = http.StatusConflict
	case apperrors.ErrOffline, apperrors.ErrSyncNotConfigured:
		status = http.StatusServiceUnavailable
	case apperrors.ErrNotAuthenticated, apperrors.ErrSyncAuthFailed:
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"code":  string(apperrors.CodeOf(err)),
	})
}

// Credentials routes GET/POST/DELETE /sync/credentials.
func (h *SyncHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getCredentials(w, r)
	case http.MethodPost:
		h.setCredentials(w, r)
	case http.MethodDelete:
		h.deleteCredentials(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getCredentials returns the current S3 configuration, secrets redacted.
func (h *SyncHandler) getCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.SyncCredential()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncNotConfigured) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"configured": false})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured":       true,
		"endpoint":         creds.Endpoint,
		"bucket_name":      creds.BucketName,
		"region":           creds.Region,
		"force_path_style": creds.ForcePathStyle,
		"access_key":       "***REDACTED***",
		"secret_key":       "***REDACTED***",
		"last_updated":     creds.UpdatedAt,
	})
}

// setCredentials validates, test-connects, encrypts and stores new S3
// credentials, then swaps the orchestrator's mirror.
func (h *SyncHandler) setCredentials(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Endpoint       string `json:"endpoint"`
		BucketName     string `json:"bucket_name"`
		Region         string `json:"region"`
		AccessKey      string `json:"access_key"`
		SecretKey      string `json:"secret_key"`
		ForcePathStyle bool   `json:"force_path_style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	for field, value := range map[string]string{
		"endpoint":    request.Endpoint,
		"bucket_name": request.BucketName,
		"access_key":  request.AccessKey,
		"secret_key":  request.SecretKey,
	} {
		if value == "" {
			http.Error(w, field+" is required", http.StatusBadRequest)
			return
		}
	}
	if request.Region == "" {
		request.Region = "us-east-1"
	}

	client := cloud.NewClientFromEndpoint(
		request.Endpoint, request.BucketName,
		request.AccessKey, request.SecretKey,
		request.Region, request.ForcePathStyle,
	)
	if err := client.TestConnection(r.Context()); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrSyncAuthFailed, "connection test failed", err))
		return
	}

	encryptedAccess, err := crypto.EncryptSecret(request.AccessKey, h.machineID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCryptoFailed, "failed to encrypt access key", err))
		return
	}
	encryptedSecret, err := crypto.EncryptSecret(request.SecretKey, h.machineID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCryptoFailed, "failed to encrypt secret key", err))
		return
	}

	creds := &models.SyncCredential{
		Endpoint:           request.Endpoint,
		BucketName:         request.BucketName,
		Region:             request.Region,
		AccessKeyEncrypted: encryptedAccess,
		SecretKeyEncrypted: encryptedSecret,
		ForcePathStyle:     request.ForcePathStyle,
	}
	if err := h.store.SaveSyncCredential(creds); err != nil {
		writeError(w, err)
		return
	}

	h.orch.SetMirror(cloud.NewMirror(client, h.userID, nil))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Sync credentials saved",
	})
}

// deleteCredentials disables cloud sync and removes stored credentials.
func (h *SyncHandler) deleteCredentials(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSyncCredentials(); err != nil {
		writeError(w, err)
		return
	}
	h.orch.SetMirror(nil)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Sync credentials removed",
	})
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.orch.Status()
	configured := true
	if _, err := h.store.SyncCredential(); err != nil {
		configured = false
	}

	response := map[string]interface{}{
		"state":           string(status.State),
		"online":          status.Online,
		"pending_uploads": status.PendingUploads,
		"configured":      configured,
		"queue_stats":     h.orch.Queue().Stats(),
		"counters":        h.orch.Stats(),
	}
	if status.LastSyncedAt != nil {
		response["last_synced_at"] = *status.LastSyncedAt
	}
	if status.LastError != "" {
		response["last_error"] = status.LastError
	}

	writeJSON(w, http.StatusOK, response)
}

// TriggerSync handles POST /sync/now.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastSyncStarted()
	}

	start := time.Now()
	result, err := h.orch.PerformFullSync(r.Context())
	if err != nil {
		if h.hub != nil {
			h.hub.BroadcastSyncFailed(string(apperrors.CodeOf(err)), true, 60)
		}
		writeError(w, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastSyncCompleted(result, time.Since(start))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"uploaded":   result.Uploaded,
		"downloaded": result.Downloaded,
		"deleted":    result.Deleted,
		"conflicts":  result.Conflicts,
		"duration":   time.Since(start).Milliseconds(),
	})
}

// Conflicts handles GET /sync/conflicts.
func (h *SyncHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.store.Conflicts(50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": entries,
	})
}
