// Package main provides the embedded LiftLog server for desktop platforms.
// Desktop clients communicate via REST/WebSocket on localhost.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kbradley/liftlog/cmd/liftlog/handlers"
	"github.com/kbradley/liftlog/internal/cloud"
	"github.com/kbradley/liftlog/internal/crypto"
	"github.com/kbradley/liftlog/internal/db"
	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/export"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/syncer"
)

// Version is set at build time.
var Version = "0.1.0"

// config carries the environment-driven server settings.
type config struct {
	Port          string
	DataDir       string
	Ephemeral     bool
	UserID        string
	MachineID     string
	LogLevel      logging.LogLevel
	ProbeURL      string
	ProbeInterval time.Duration
}

func loadConfig() config {
	// Missing .env is fine; plain environment variables still apply.
	godotenv.Load()

	cfg := config{
		Port:          envOr("LIFTLOG_PORT", "8090"),
		DataDir:       envOr("LIFTLOG_DATA_DIR", "./data"),
		Ephemeral:     envBool("LIFTLOG_EPHEMERAL"),
		UserID:        envOr("LIFTLOG_USER_ID", "local"),
		MachineID:     envOr("LIFTLOG_MACHINE_ID", "default"),
		LogLevel:      parseLogLevel(os.Getenv("LIFTLOG_LOG_LEVEL")),
		ProbeURL:      envOr("LIFTLOG_PROBE_URL", "https://www.google.com/generate_204"),
		ProbeInterval: 30 * time.Second,
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func parseLogLevel(s string) logging.LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return logging.LevelDebug
	case "WARN":
		return logging.LevelWarn
	case "ERROR":
		return logging.LevelError
	}
	return logging.LevelInfo
}

// openStore picks the persistent SQLite store or the in-memory store for
// ephemeral runs (tests, demos, sandboxed platforms).
func openStore(cfg config) (db.Store, error) {
	caps := platform.Capabilities{Persistent: !cfg.Ephemeral}
	if !caps.Persistent {
		return db.NewSeededMemStore(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}
	return db.OpenStore(cfg.DataDir)
}

// mirrorFromCredentials rebuilds the cloud mirror from stored credentials,
// if any. Returns nil when sync has never been configured.
func mirrorFromCredentials(store db.Store, cfg config, logger *logging.Logger) *cloud.Mirror {
	creds, err := store.SyncCredential()
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrSyncNotConfigured) {
			logger.Error("failed to load sync credentials", err)
		}
		return nil
	}

	accessKey, err := crypto.DecryptSecret(creds.AccessKeyEncrypted, cfg.MachineID)
	if err != nil {
		logger.Error("failed to decrypt access key", err)
		return nil
	}
	secretKey, err := crypto.DecryptSecret(creds.SecretKeyEncrypted, cfg.MachineID)
	if err != nil {
		logger.Error("failed to decrypt secret key", err)
		return nil
	}

	client := cloud.NewClientFromEndpoint(
		creds.Endpoint, creds.BucketName,
		accessKey, secretKey,
		creds.Region, creds.ForcePathStyle,
	)
	return cloud.NewMirror(client, cfg.UserID, logger)
}

func newRouter(store db.Store, orch *syncer.Orchestrator, hub *WSHub, cfg config) *http.ServeMux {
	syncHandler := handlers.NewSyncHandler(store, orch, cfg.UserID, cfg.MachineID)
	syncHandler.SetBroadcaster(hub)
	recordHandler := handlers.NewRecordHandler(store, orch)
	backupHandler := handlers.NewBackupHandler(export.NewService(store, logging.Get()))

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"liftlog-desktop","version":"` + Version + `"}`))
	})

	mux.HandleFunc("/api/sync/credentials", syncHandler.Credentials)
	mux.HandleFunc("/api/sync/status", syncHandler.Status)
	mux.HandleFunc("/api/sync/now", syncHandler.TriggerSync)
	mux.HandleFunc("/api/sync/conflicts", syncHandler.Conflicts)

	mux.HandleFunc("/api/records/{type}", recordHandler.Collection)
	mux.HandleFunc("/api/records/{type}/{id}", recordHandler.Item)

	mux.HandleFunc("/api/backup/export", backupHandler.Export)
	mux.HandleFunc("/api/backup/import", backupHandler.Import)

	mux.HandleFunc("/ws", HandleWebSocket(hub))

	return mux
}

func main() {
	cfg := loadConfig()
	logging.Init(os.Stdout, cfg.LogLevel)
	logger := logging.Get()

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := platform.NewHTTPConnectivity(cfg.ProbeURL, cfg.ProbeInterval)
	auth := &platform.StaticAuth{UserID: cfg.UserID}
	mirror := mirrorFromCredentials(store, cfg, logger)

	orch := syncer.NewOrchestrator(store, nil, auth, conn, logger)
	if mirror != nil {
		orch.SetMirror(mirror)
	}

	hub := NewWSHub(logger)
	unsubscribe := orch.Subscribe(hub.BroadcastSyncStatus)
	defer unsubscribe()

	conn.Start(ctx)
	defer conn.Stop()
	stopListener := orch.StartNetworkListener(ctx)
	defer stopListener()
	orch.StartRetryWorker(ctx, time.Minute)

	server := &http.Server{
		Addr:    "127.0.0.1:" + cfg.Port,
		Handler: newRouter(store, orch, hub, cfg),
	}

	go func() {
		logger.Info("LiftLog server starting", map[string]interface{}{
			"addr":       server.Addr,
			"version":    Version,
			"ephemeral":  cfg.Ephemeral,
			"configured": mirror != nil,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("LiftLog server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
}
