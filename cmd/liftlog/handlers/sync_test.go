// Package handlers tests for the sync REST API endpoints.
// These tests verify HTTP request handling, status codes, and responses.
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbradley/liftlog/internal/cloud"
	"github.com/kbradley/liftlog/internal/db"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/syncer"
)

// setupSync builds a handler backed by an in-memory store and an
// in-memory object store mirror, so no network is touched.
func setupSync(t *testing.T) (*SyncHandler, db.Store, *cloud.MemObjectStore) {
	t.Helper()

	store := db.NewMemStore()
	bucket := cloud.NewMemObjectStore()
	quiet := logging.New(io.Discard, logging.LevelError)
	mirror := cloud.NewMirror(bucket, "u1", quiet)
	orch := syncer.NewOrchestrator(
		store, mirror,
		&platform.StaticAuth{UserID: "u1"},
		platform.NewManualConnectivity(true),
		quiet,
	)

	handler := NewSyncHandler(store, orch, "u1", "machine-1")
	return handler, store, bucket
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

func TestSyncHandler_GetCredentialsUnconfigured(t *testing.T) {
	handler, _, _ := setupSync(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/credentials", nil)
	rec := httptest.NewRecorder()
	handler.Credentials(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["configured"] != false {
		t.Errorf("Expected configured=false, got %v", body["configured"])
	}
}

func TestSyncHandler_GetCredentialsRedacted(t *testing.T) {
	handler, store, _ := setupSync(t)

	if err := store.SaveSyncCredential(&models.SyncCredential{
		Endpoint:           "https://s3.example.com",
		BucketName:         "liftlog",
		Region:             "us-east-1",
		AccessKeyEncrypted: "enc-access",
		SecretKeyEncrypted: "enc-secret",
	}); err != nil {
		t.Fatalf("Failed to save credential: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sync/credentials", nil)
	rec := httptest.NewRecorder()
	handler.Credentials(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["configured"] != true {
		t.Errorf("Expected configured=true, got %v", body["configured"])
	}
	if body["access_key"] != "***REDACTED***" || body["secret_key"] != "***REDACTED***" {
		t.Errorf("Secrets not redacted: %v / %v", body["access_key"], body["secret_key"])
	}
	if body["bucket_name"] != "liftlog" {
		t.Errorf("Expected bucket_name liftlog, got %v", body["bucket_name"])
	}
}

func TestSyncHandler_SetCredentialsValidation(t *testing.T) {
	handler, _, _ := setupSync(t)

	payload := map[string]string{
		"endpoint":   "https://s3.example.com",
		"access_key": "ak",
		// bucket_name and secret_key missing
	}
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/sync/credentials", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.Credentials(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing fields, got %d", rec.Code)
	}
}

func TestSyncHandler_DeleteCredentials(t *testing.T) {
	handler, store, _ := setupSync(t)

	if err := store.SaveSyncCredential(&models.SyncCredential{
		Endpoint:           "https://s3.example.com",
		BucketName:         "liftlog",
		AccessKeyEncrypted: "a",
		SecretKeyEncrypted: "b",
	}); err != nil {
		t.Fatalf("Failed to save credential: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/sync/credentials", nil)
	rec := httptest.NewRecorder()
	handler.Credentials(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if _, err := store.SyncCredential(); err == nil {
		t.Error("Expected credential to be removed")
	}

	// A full sync after removal must report not-configured.
	syncReq := httptest.NewRequest(http.MethodPost, "/api/sync/now", nil)
	syncRec := httptest.NewRecorder()
	handler.TriggerSync(syncRec, syncReq)
	if syncRec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 after credentials removed, got %d", syncRec.Code)
	}
}

func TestSyncHandler_Status(t *testing.T) {
	handler, store, _ := setupSync(t)

	if err := store.Save(&models.BodyMeasurement{MeasuredAt: 1000}); err != nil {
		t.Fatalf("Failed to save measurement: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["state"] != "idle" {
		t.Errorf("Expected state idle, got %v", body["state"])
	}
	if body["pending_uploads"] != float64(1) {
		t.Errorf("Expected 1 pending upload, got %v", body["pending_uploads"])
	}
	if body["configured"] != false {
		t.Errorf("Expected configured=false, got %v", body["configured"])
	}
}

func TestSyncHandler_TriggerSync(t *testing.T) {
	handler, store, bucket := setupSync(t)

	if err := store.Save(&models.BodyMeasurement{MeasuredAt: 1000}); err != nil {
		t.Fatalf("Failed to save measurement: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sync/now", nil)
	rec := httptest.NewRecorder()
	handler.TriggerSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["uploaded"] != float64(1) {
		t.Errorf("Expected 1 uploaded, got %v", body["uploaded"])
	}
	if bucket.Len() != 1 {
		t.Errorf("Expected 1 object in bucket, got %d", bucket.Len())
	}
}

func TestSyncHandler_TriggerSyncMethodNotAllowed(t *testing.T) {
	handler, _, _ := setupSync(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/now", nil)
	rec := httptest.NewRecorder()
	handler.TriggerSync(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestSyncHandler_Conflicts(t *testing.T) {
	handler, store, _ := setupSync(t)

	if err := store.LogConflict(&models.ConflictLog{
		EntityType: models.TypeSessions,
		RecordID:   "s1",
		Resolution: "remote",
		Rule:       "newer_completed_at",
		DetectedAt: 5000,
	}); err != nil {
		t.Fatalf("Failed to log conflict: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sync/conflicts", nil)
	rec := httptest.NewRecorder()
	handler.Conflicts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	entries, ok := body["conflicts"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("Expected 1 conflict entry, got %v", body["conflicts"])
	}
}
