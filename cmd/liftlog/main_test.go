// Package main tests for server initialization and routing.
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kbradley/liftlog/internal/db"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/syncer"
)

// newTestRouter wires the full route table against an in-memory store.
func newTestRouter(t *testing.T) (*http.ServeMux, db.Store) {
	t.Helper()

	quiet := logging.New(io.Discard, logging.LevelError)
	store := db.NewSeededMemStore()
	orch := syncer.NewOrchestrator(
		store, nil,
		&platform.StaticAuth{UserID: "u1"},
		platform.NewManualConnectivity(true),
		quiet,
	)
	hub := NewWSHub(quiet)
	cfg := config{UserID: "u1", MachineID: "test-machine"}

	return newRouter(store, orch, hub, cfg), store
}

func TestRouter_Health(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health check returned status %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), `"service":"liftlog-desktop"`) {
		t.Errorf("Unexpected health body: %s", w.Body.String())
	}

	post := httptest.NewRequest(http.MethodPost, "/api/health", nil)
	pw := httptest.NewRecorder()
	mux.ServeHTTP(pw, post)
	if pw.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST health, got %d", pw.Code)
	}
}

func TestRouter_SyncStatusRoute(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode status body: %v", err)
	}
	if body["state"] != "idle" {
		t.Errorf("Expected state idle, got %v", body["state"])
	}
	if body["configured"] != false {
		t.Errorf("Expected configured=false, got %v", body["configured"])
	}
}

func TestRouter_RecordRoutes(t *testing.T) {
	mux, store := newTestRouter(t)

	exercise := &models.Exercise{Name: "Cable Fly", IsCustom: true}
	if err := store.Save(exercise); err != nil {
		t.Fatalf("Failed to save exercise: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/records/exercises/"+string(exercise.ID), nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var got models.Exercise
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode exercise: %v", err)
	}
	if got.Name != "Cable Fly" {
		t.Errorf("Expected exercise Cable Fly, got %q", got.Name)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"LIFTLOG_PORT", "LIFTLOG_DATA_DIR", "LIFTLOG_EPHEMERAL",
		"LIFTLOG_USER_ID", "LIFTLOG_MACHINE_ID", "LIFTLOG_LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}

	cfg := loadConfig()
	if cfg.Port != "8090" {
		t.Errorf("Expected default port 8090, got %s", cfg.Port)
	}
	if cfg.UserID != "local" {
		t.Errorf("Expected default user id local, got %s", cfg.UserID)
	}
	if cfg.Ephemeral {
		t.Error("Expected ephemeral off by default")
	}
	if cfg.LogLevel != logging.LevelInfo {
		t.Errorf("Expected default log level INFO, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	os.Setenv("LIFTLOG_PORT", "9999")
	os.Setenv("LIFTLOG_EPHEMERAL", "true")
	os.Setenv("LIFTLOG_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("LIFTLOG_PORT")
		os.Unsetenv("LIFTLOG_EPHEMERAL")
		os.Unsetenv("LIFTLOG_LOG_LEVEL")
	}()

	cfg := loadConfig()
	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if !cfg.Ephemeral {
		t.Error("Expected ephemeral on")
	}
	if cfg.LogLevel != logging.LevelDebug {
		t.Errorf("Expected log level DEBUG, got %s", cfg.LogLevel)
	}

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore failed for ephemeral config: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*db.MemStore); !ok {
		t.Errorf("Expected MemStore for ephemeral config, got %T", store)
	}
}
