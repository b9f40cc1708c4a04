package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kbradley/liftlog/internal/export"
)

// BackupHandler exposes local backup export and restore.
type BackupHandler struct {
	service *export.Service
}

// NewBackupHandler creates a BackupHandler.
func NewBackupHandler(service *export.Service) *BackupHandler {
	return &BackupHandler{service: service}
}

// Export handles POST /backup/export.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		OutputPath string `json:"output_path"`
		Password   string `json:"password"`
	}
	if r.Body != nil {
		// An empty body means default path, no encryption.
		json.NewDecoder(r.Body).Decode(&request)
	}

	result, err := h.service.Export(&export.Config{
		OutputPath: request.OutputPath,
		Password:   request.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"file_path":    result.FilePath,
		"size_bytes":   result.SizeBytes,
		"record_count": result.RecordCount,
		"checksum":     result.Checksum,
		"encrypted":    result.Encrypted,
		"duration_ms":  result.Duration.Milliseconds(),
	})
}

// Import handles POST /backup/import.
func (h *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		ArchivePath string `json:"archive_path"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if request.ArchivePath == "" {
		http.Error(w, "archive_path is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Import(&export.ImportConfig{
		ArchivePath: request.ArchivePath,
		Password:    request.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"imported":    result.ImportedCount,
		"skipped":     result.SkippedCount,
		"duration_ms": result.Duration.Milliseconds(),
	})
}
