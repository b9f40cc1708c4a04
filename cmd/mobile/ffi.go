// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libliftlog.so (Android) / liftlog.framework (iOS).
// All exported functions use the C calling convention and can be called
// from Dart or Kotlin/Swift FFI. Returned strings must be released with
// FreeString.
package main

/*
#cgo CFLAGS: -Wall -Wextra
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/kbradley/liftlog/internal/cloud"
	"github.com/kbradley/liftlog/internal/db"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/syncer"
)

var (
	once    sync.Once
	store   db.Store
	orch    *syncer.Orchestrator
	conn    *platform.ManualConnectivity
	lastErr string
	lastMu  sync.RWMutex
)

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

//export Init
// Init opens the local store and wires the sync engine. dataDir is the
// app's writable directory; an empty dataDir uses an in-memory store
// (data lost on process exit). userID scopes cloud keys.
func Init(dataDir, userID *C.char) int32 {
	status := int32(0)
	once.Do(func() {
		dir := C.GoString(dataDir)
		uid := C.GoString(userID)
		if uid == "" {
			uid = "local"
		}

		logger := logging.New(io.Discard, logging.LevelError)

		var err error
		if dir == "" {
			store = db.NewSeededMemStore()
		} else {
			store, err = db.OpenStore(dir)
			if err != nil {
				setLastError(fmt.Sprintf("failed to open store: %v", err))
				status = 1
				return
			}
		}

		// The host app reports connectivity changes via SetOnline;
		// Go cannot observe radios directly on mobile.
		conn = platform.NewManualConnectivity(false)
		orch = syncer.NewOrchestrator(store, nil, &platform.StaticAuth{UserID: uid}, conn, logger)
		orch.StartNetworkListener(context.Background())
	})
	return status
}

//export Cleanup
// Cleanup releases the store's resources.
func Cleanup() {
	if store != nil {
		store.Close()
	}
}

//export GetLastError
// GetLastError returns the last error message.
// Returns a C string that must be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()
	return C.CString(lastErr)
}

func entityTypeFrom(name *C.char) (models.EntityType, bool) {
	s := C.GoString(name)
	for _, t := range models.SyncedTypes() {
		if string(t) == s {
			return t, true
		}
	}
	setLastError(fmt.Sprintf("unknown collection: %q", s))
	return "", false
}

//export RecordSave
// RecordSave upserts one record from its JSON form and schedules a
// background upload. Returns the saved record as JSON.
func RecordSave(entityType, payload *C.char) *C.char {
	if store == nil {
		setLastError("core not initialized")
		return nil
	}
	t, ok := entityTypeFrom(entityType)
	if !ok {
		return nil
	}

	rec, err := models.Decode(t, []byte(C.GoString(payload)))
	if err != nil {
		setLastError(fmt.Sprintf("invalid record payload: %v", err))
		return nil
	}
	if err := store.Save(rec); err != nil {
		setLastError(fmt.Sprintf("failed to save record: %v", err))
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		orch.UploadRecord(ctx, t, rec.Meta().ID)
	}()

	data, err := json.Marshal(rec)
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export RecordList
// RecordList returns all active records of a collection as JSON.
func RecordList(entityType *C.char) *C.char {
	if store == nil {
		setLastError("core not initialized")
		return nil
	}
	t, ok := entityTypeFrom(entityType)
	if !ok {
		return nil
	}

	records, err := store.GetActive(t)
	if err != nil {
		setLastError(fmt.Sprintf("failed to list records: %v", err))
		return nil
	}

	data, err := json.Marshal(map[string]interface{}{
		"records": records,
		"total":   len(records),
	})
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export RecordGet
// RecordGet returns one record by id as JSON.
func RecordGet(entityType, id *C.char) *C.char {
	if store == nil {
		setLastError("core not initialized")
		return nil
	}
	t, ok := entityTypeFrom(entityType)
	if !ok {
		return nil
	}

	rec, err := store.Get(t, models.UUID(C.GoString(id)))
	if err != nil {
		setLastError(fmt.Sprintf("failed to get record: %v", err))
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export RecordDelete
// RecordDelete soft-deletes one record and schedules the tombstone for
// cloud propagation. Returns 0 on success.
func RecordDelete(entityType, id *C.char) int32 {
	if store == nil {
		setLastError("core not initialized")
		return 1
	}
	t, ok := entityTypeFrom(entityType)
	if !ok {
		return 1
	}

	recordID := models.UUID(C.GoString(id))
	if err := store.SoftDelete(t, recordID); err != nil {
		setLastError(fmt.Sprintf("failed to delete record: %v", err))
		return 1
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		orch.UploadRecord(ctx, t, recordID)
	}()
	return 0
}

//export ConfigureSync
// ConfigureSync installs a cloud mirror from raw S3 credentials and a
// user id. Returns 0 on success.
func ConfigureSync(endpoint, bucket, accessKey, secretKey, region, userID *C.char, forcePathStyle int32) int32 {
	if orch == nil {
		setLastError("core not initialized")
		return 1
	}

	client := cloud.NewClientFromEndpoint(
		C.GoString(endpoint), C.GoString(bucket),
		C.GoString(accessKey), C.GoString(secretKey),
		C.GoString(region), forcePathStyle != 0,
	)
	uid := C.GoString(userID)
	if uid == "" {
		uid = "local"
	}
	orch.SetMirror(cloud.NewMirror(client, uid, nil))
	return 0
}

//export SetOnline
// SetOnline reports a connectivity change from the host platform. A
// transition to online triggers a background full sync.
func SetOnline(online int32) {
	if conn != nil {
		conn.SetOnline(online != 0)
	}
}

//export SyncNow
// SyncNow runs one full sync cycle and returns its result as JSON.
func SyncNow() *C.char {
	if orch == nil {
		setLastError("core not initialized")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := orch.PerformFullSync(ctx)
	if err != nil {
		setLastError(fmt.Sprintf("sync failed: %v", err))
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export SyncStatus
// SyncStatus returns the engine status snapshot as JSON.
func SyncStatus() *C.char {
	if orch == nil {
		setLastError("core not initialized")
		return nil
	}

	data, err := json.Marshal(orch.Status())
	if err != nil {
		setLastError(fmt.Sprintf("failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

//export FreeString
// FreeString frees a string allocated by Go.
func FreeString(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

func main() {
	// Required for c-shared build mode; unused when loaded as a library.
}
