// Package syncer orchestrates synchronization between the local store
// and the cloud mirror.
package syncer

// SyncState is the orchestrator's coarse state machine.
type SyncState string

const (
	StateIdle        SyncState = "idle"
	StateUploading   SyncState = "uploading"
	StateDownloading SyncState = "downloading"
	StateError       SyncState = "error"
)

// Status is a snapshot of the engine for status displays.
type Status struct {
	State          SyncState `json:"state"`
	Online         bool      `json:"online"`
	LastSyncedAt   *int64    `json:"lastSyncedAt"`
	PendingUploads int       `json:"pendingUploads"`
	LastError      string    `json:"lastError,omitempty"`
}

// Result summarizes one full sync cycle.
type Result struct {
	Uploaded   int `json:"uploaded"`
	Downloaded int `json:"downloaded"`
	Deleted    int `json:"deleted"`
	Conflicts  int `json:"conflicts"`
	Skipped    int `json:"skipped"`
}
