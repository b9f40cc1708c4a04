// Package export provides local backup and restore of workout data.
// Backups are tar.gz archives holding a manifest and one JSON document
// per entity collection, optionally sealed with AES-256-GCM.
package export

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kbradley/liftlog/internal/crypto"
	"github.com/kbradley/liftlog/internal/db"
	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
)

// encryptedPrefix marks a sealed backup file. Plain backups start with
// the gzip magic bytes instead.
const encryptedPrefix = "LLBK1E:"

// Service exports and imports workout data archives.
type Service struct {
	store  db.Store
	logger *logging.Logger
}

// NewService creates a backup Service.
func NewService(store db.Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Get()
	}
	return &Service{store: store, logger: logger}
}

// Config holds export configuration.
type Config struct {
	OutputPath string
	Password   string // empty means no encryption
}

// ImportConfig holds import configuration.
type ImportConfig struct {
	ArchivePath string
	Password    string
}

// Manifest describes a backup archive.
type Manifest struct {
	Version     string         `json:"version"`
	ExportedAt  int64          `json:"exported_at"`
	RecordCount int            `json:"record_count"`
	Counts      map[string]int `json:"counts"`
	Checksum    string         `json:"checksum"`
	Encrypted   bool           `json:"encrypted"`
}

// Result reports a finished export.
type Result struct {
	FilePath    string
	SizeBytes   int64
	RecordCount int
	Checksum    string
	Encrypted   bool
	Duration    time.Duration
}

// ImportResult reports a finished import.
type ImportResult struct {
	ImportedCount int
	SkippedCount  int
	Duration      time.Duration
}

// Export writes all synced records to a backup archive. Tombstones that
// still await cloud propagation are included so a restore does not
// resurrect deleted data.
func (s *Service) Export(cfg *Config) (*Result, error) {
	start := time.Now()

	collections, total, err := s.collect()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(collections, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup data: %w", err)
	}
	checksum := fmt.Sprintf("%x", sha256.Sum256(data))

	counts := make(map[string]int, len(collections))
	for name, records := range collections {
		counts[name] = len(records)
	}
	manifest := &Manifest{
		Version:     "1.0",
		ExportedAt:  start.Unix(),
		RecordCount: total,
		Counts:      counts,
		Checksum:    checksum,
		Encrypted:   cfg.Password != "",
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}

	archive, err := buildArchive(map[string][]byte{
		"manifest.json": manifestData,
		"data.json":     data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build archive: %w", err)
	}

	payload := archive
	if cfg.Password != "" {
		sealed, err := crypto.Encrypt(archive, []byte(cfg.Password))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCryptoFailed, "failed to seal backup", err)
		}
		payload = append([]byte(encryptedPrefix), sealed...)
	}

	path := cfg.OutputPath
	if path == "" {
		path = fmt.Sprintf("backups/liftlog_%s.tar.gz", start.Format("20060102_150405"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return nil, err
	}

	s.logger.Info("backup exported", map[string]interface{}{
		"path":    path,
		"records": total,
		"sealed":  cfg.Password != "",
	})

	return &Result{
		FilePath:    path,
		SizeBytes:   int64(len(payload)),
		RecordCount: total,
		Checksum:    checksum,
		Encrypted:   cfg.Password != "",
		Duration:    time.Since(start),
	}, nil
}

// Import restores records from a backup archive. Records whose id is
// already present locally are skipped; restored records keep their
// original timestamps and sync state.
func (s *Service) Import(cfg *ImportConfig) (*ImportResult, error) {
	start := time.Now()

	payload, err := os.ReadFile(cfg.ArchivePath)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(payload, []byte(encryptedPrefix)) {
		if cfg.Password == "" {
			return nil, apperrors.New(apperrors.ErrCryptoFailed, "backup is encrypted, password required")
		}
		opened, err := crypto.Decrypt(string(payload[len(encryptedPrefix):]), []byte(cfg.Password))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCryptoFailed, "failed to unseal backup", err)
		}
		payload = opened
	}

	files, err := readArchive(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	manifestData, ok := files["manifest.json"]
	if !ok {
		return nil, apperrors.New(apperrors.ErrInvalid, "backup missing manifest")
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "invalid backup manifest", err)
	}

	data, ok := files["data.json"]
	if !ok {
		return nil, apperrors.New(apperrors.ErrInvalid, "backup missing data file")
	}
	if sum := fmt.Sprintf("%x", sha256.Sum256(data)); sum != manifest.Checksum {
		return nil, apperrors.New(apperrors.ErrValidation, "backup checksum mismatch")
	}

	var collections map[string][]json.RawMessage
	if err := json.Unmarshal(data, &collections); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalid, "invalid backup data", err)
	}

	imported, skipped := 0, 0
	for _, t := range models.SyncedTypes() {
		for _, raw := range collections[string(t)] {
			rec, err := models.Decode(t, raw)
			if err != nil {
				s.logger.Warn("skipping unreadable backup record", map[string]interface{}{
					"type": string(t),
				})
				skipped++
				continue
			}
			if _, err := s.store.Get(t, rec.Meta().ID); err == nil {
				skipped++
				continue
			}
			if err := s.store.SaveRemote(rec); err != nil {
				s.logger.Warn("failed to restore record", map[string]interface{}{
					"type": string(t),
					"id":   string(rec.Meta().ID),
				})
				skipped++
				continue
			}
			imported++
		}
	}

	s.logger.Info("backup imported", map[string]interface{}{
		"imported": imported,
		"skipped":  skipped,
	})

	return &ImportResult{
		ImportedCount: imported,
		SkippedCount:  skipped,
		Duration:      time.Since(start),
	}, nil
}

// collect gathers active records and pending tombstones per collection.
func (s *Service) collect() (map[string][]models.Record, int, error) {
	collections := make(map[string][]models.Record)
	total := 0
	for _, t := range models.SyncedTypes() {
		active, err := s.store.GetActive(t)
		if err != nil {
			return nil, 0, err
		}
		tombstones, err := s.store.GetTombstones(t)
		if err != nil {
			return nil, 0, err
		}
		records := append(active, tombstones...)
		collections[string(t)] = records
		total += len(records)
	}
	return collections, total, nil
}

// buildArchive packs named files into a tar.gz byte slice.
func buildArchive(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	// Manifest first so readers can inspect it without full extraction.
	for _, name := range []string{"manifest.json", "data.json"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(content); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readArchive unpacks a tar.gz byte slice into named files.
func readArchive(payload []byte) (map[string][]byte, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer gzr.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		files[header.Name] = content
	}
	return files, nil
}
