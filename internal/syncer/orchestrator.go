package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbradley/liftlog/internal/db"
	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/platform"
	"github.com/kbradley/liftlog/internal/telemetry"
)

// Mirror is the cloud-side contract the orchestrator drives.
// cloud.Mirror implements it; tests substitute fakes.
type Mirror interface {
	Upload(ctx context.Context, rec models.Record) (int64, error)
	FetchAll(ctx context.Context, t models.EntityType) ([]models.Record, error)
	MarkDeleted(ctx context.Context, rec models.Record) error
}

// Orchestrator runs sync cycles between the local store and the mirror.
// At most one cycle runs at a time; a second invocation while one is in
// flight is a no-op.
type Orchestrator struct {
	store    db.Store
	auth     platform.Auth
	conn     platform.Connectivity
	resolver *Resolver
	queue    *RetryQueue
	stats    *telemetry.Collector
	logger   *logging.Logger
	now      func() int64

	syncMu sync.Mutex // held for the duration of a cycle

	mu           sync.Mutex // guards the fields below
	mirror       Mirror
	state        SyncState
	online       bool
	lastSyncedAt *int64
	lastError    string
	nextListener int
	listeners    map[int]func(Status)
}

// NewOrchestrator wires an Orchestrator. mirror may be nil when cloud
// sync is not yet configured; SetMirror installs it later.
func NewOrchestrator(store db.Store, mirror Mirror, auth platform.Auth, conn platform.Connectivity, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Get()
	}
	return &Orchestrator{
		store:     store,
		mirror:    mirror,
		auth:      auth,
		conn:      conn,
		resolver:  NewResolver(logger),
		queue:     NewRetryQueue(0),
		stats:     telemetry.NewCollector(),
		logger:    logger,
		now:       func() int64 { return time.Now().Unix() },
		state:     StateIdle,
		listeners: make(map[int]func(Status)),
	}
}

// SetMirror installs or replaces the cloud mirror, e.g. after the user
// saves credentials.
func (o *Orchestrator) SetMirror(m Mirror) {
	o.mu.Lock()
	o.mirror = m
	o.mu.Unlock()
}

// Queue exposes the retry queue for status displays.
func (o *Orchestrator) Queue() *RetryQueue {
	return o.queue
}

// Stats returns local-only sync counters. Nothing is transmitted.
func (o *Orchestrator) Stats() telemetry.Stats {
	return o.stats.Snapshot()
}

// Status returns a snapshot of the engine.
func (o *Orchestrator) Status() Status {
	pending, err := o.store.PendingUploads()
	if err != nil {
		pending = 0
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:          o.state,
		Online:         o.online,
		LastSyncedAt:   o.lastSyncedAt,
		PendingUploads: pending,
		LastError:      o.lastError,
	}
}

// Subscribe registers a status listener, invoked on every state change.
// It returns an unsubscribe function.
func (o *Orchestrator) Subscribe(fn func(Status)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextListener
	o.nextListener++
	o.listeners[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

// setState transitions the state machine and notifies listeners.
func (o *Orchestrator) setState(state SyncState, lastError string) {
	o.mu.Lock()
	o.state = state
	o.lastError = lastError
	fns := make([]func(Status), 0, len(o.listeners))
	for _, fn := range o.listeners {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	status := o.Status()
	for _, fn := range fns {
		fn(status)
	}
}

func (o *Orchestrator) setOnline(online bool) {
	o.mu.Lock()
	changed := o.online != online
	o.online = online
	o.mu.Unlock()
	if changed {
		o.setState(o.currentState(), "")
	}
}

func (o *Orchestrator) currentState() SyncState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) currentMirror() Mirror {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mirror
}

// preflight validates that a sync cycle can run at all.
func (o *Orchestrator) preflight(ctx context.Context) (Mirror, error) {
	if !o.auth.IsAuthenticated() {
		return nil, apperrors.New(apperrors.ErrNotAuthenticated, "sync requires a signed-in user")
	}
	mirror := o.currentMirror()
	if mirror == nil {
		return nil, apperrors.New(apperrors.ErrSyncNotConfigured, "no cloud mirror configured")
	}
	if !o.conn.IsConnected(ctx) {
		o.setOnline(false)
		return nil, apperrors.New(apperrors.ErrOffline, "device is offline")
	}
	o.setOnline(true)
	return mirror, nil
}

// PerformFullSync runs one upload-then-download cycle. It returns
// ErrSyncInProgress when a cycle is already running.
func (o *Orchestrator) PerformFullSync(ctx context.Context) (*Result, error) {
	if !o.syncMu.TryLock() {
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	defer o.syncMu.Unlock()

	mirror, err := o.preflight(ctx)
	if err != nil {
		return nil, err
	}

	o.logger.Info("full sync started", nil)
	start := time.Now()
	result := &Result{}

	o.setState(StateUploading, "")
	if err := o.uploadPending(ctx, mirror, result); err != nil {
		o.stats.RecordFailure()
		o.setState(StateError, err.Error())
		return result, err
	}

	o.setState(StateDownloading, "")
	if err := o.downloadAndMerge(ctx, mirror, result); err != nil {
		o.stats.RecordFailure()
		o.setState(StateError, err.Error())
		return result, err
	}

	o.stats.RecordCycle(result.Uploaded, result.Downloaded, result.Deleted, result.Conflicts, time.Since(start))
	now := o.now()
	o.mu.Lock()
	o.lastSyncedAt = &now
	o.mu.Unlock()
	o.setState(StateIdle, "")

	o.logger.Info("full sync completed", map[string]interface{}{
		"uploaded":   result.Uploaded,
		"downloaded": result.Downloaded,
		"deleted":    result.Deleted,
		"conflicts":  result.Conflicts,
	})
	return result, nil
}

// UploadPending pushes tombstones and dirty records to the mirror
// without downloading. Shares the single-flight lock with full sync.
func (o *Orchestrator) UploadPending(ctx context.Context) (*Result, error) {
	if !o.syncMu.TryLock() {
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	defer o.syncMu.Unlock()

	mirror, err := o.preflight(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	o.setState(StateUploading, "")
	if err := o.uploadPending(ctx, mirror, result); err != nil {
		o.setState(StateError, err.Error())
		return result, err
	}
	o.setState(StateIdle, "")
	return result, nil
}

// DownloadAndMerge pulls the mirror and merges into the local store
// without uploading first.
func (o *Orchestrator) DownloadAndMerge(ctx context.Context) (*Result, error) {
	if !o.syncMu.TryLock() {
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	defer o.syncMu.Unlock()

	mirror, err := o.preflight(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	o.setState(StateDownloading, "")
	if err := o.downloadAndMerge(ctx, mirror, result); err != nil {
		o.setState(StateError, err.Error())
		return result, err
	}
	o.setState(StateIdle, "")
	return result, nil
}

// uploadPending propagates tombstones first, then dirty records, in the
// fixed type order. Individual failures are queued for retry and do not
// abort the pass; the cycle fails only when nothing could be uploaded.
func (o *Orchestrator) uploadPending(ctx context.Context, mirror Mirror, result *Result) error {
	var firstErr error
	failures := 0

	for _, t := range models.SyncedTypes() {
		if err := ctx.Err(); err != nil {
			return err
		}

		tombstones, err := o.store.GetTombstones(t)
		if err != nil {
			return err
		}
		for _, rec := range tombstones {
			if err := mirror.MarkDeleted(ctx, rec); err != nil {
				o.logger.Warn("tombstone propagation failed", map[string]interface{}{
					"entity_type": string(t),
					"record_id":   string(rec.Meta().ID),
					"error":       err.Error(),
				})
				failures++
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			// The mirror holds the delete now, drop the local row.
			if err := o.store.HardDelete(t, rec.Meta().ID); err != nil && !db.IsNotFound(err) {
				return err
			}
			result.Deleted++
		}

		pending, err := o.store.GetPending(t)
		if err != nil {
			return err
		}
		for _, rec := range pending {
			syncedAt, err := mirror.Upload(ctx, rec)
			if err != nil {
				o.logger.Warn("record upload failed", map[string]interface{}{
					"entity_type": string(t),
					"record_id":   string(rec.Meta().ID),
					"error":       err.Error(),
				})
				o.enqueueRetry(t, rec.Meta().ID)
				failures++
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := o.store.MarkSynced(t, rec.Meta().ID, syncedAt); err != nil && !db.IsNotFound(err) {
				return err
			}
			o.queue.Complete(t, rec.Meta().ID)
			result.Uploaded++
		}
	}

	if failures > 0 && result.Uploaded == 0 && result.Deleted == 0 {
		return apperrors.Wrap(apperrors.ErrRemote,
			fmt.Sprintf("upload pass failed (%d records)", failures), firstErr)
	}
	return nil
}

// downloadAndMerge pulls every collection from the mirror and merges it
// into the local store under the conflict rules.
func (o *Orchestrator) downloadAndMerge(ctx context.Context, mirror Mirror, result *Result) error {
	for _, t := range models.SyncedTypes() {
		if err := ctx.Err(); err != nil {
			return err
		}

		remotes, err := mirror.FetchAll(ctx, t)
		if err != nil {
			return err
		}

		if t == models.TypePersonalRecords {
			if err := o.mergePersonalRecords(remotes, result); err != nil {
				return err
			}
			continue
		}

		for _, remote := range remotes {
			if err := o.mergeOne(t, remote, result); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergeOne merges a single remote record against the freshest local
// copy. The local row is re-read immediately before the decision so an
// edit made while the download was in flight is not clobbered.
func (o *Orchestrator) mergeOne(t models.EntityType, remote models.Record, result *Result) error {
	id := remote.Meta().ID

	local, err := o.store.Get(t, id)
	if db.IsNotFound(err) {
		if remote.Meta().Deleted {
			// Never seen locally, nothing to delete.
			result.Skipped++
			return nil
		}
		if err := o.store.SaveRemote(remote); err != nil {
			return err
		}
		result.Downloaded++
		return nil
	}
	if err != nil {
		return err
	}

	if local.Meta().Deleted && remote.Meta().Deleted {
		result.Skipped++
		return nil
	}

	res := o.resolver.Resolve(local, remote)
	dirty := local.Meta().IsDirty()

	if res.Winner == WinnerRemote {
		if err := o.store.SaveRemote(remote); err != nil {
			return err
		}
		result.Downloaded++
		// Every remote win over an existing record is a resolved
		// conflict, except a tombstone landing on a clean local copy,
		// which is plain delete propagation.
		if !remote.Meta().Deleted || dirty {
			if err := o.store.LogConflict(o.resolver.ConflictEntry(local, remote, res)); err != nil {
				return err
			}
			result.Conflicts++
		}
		return nil
	}

	result.Skipped++
	if dirty {
		// Local edit survived against a differing remote copy.
		if err := o.store.LogConflict(o.resolver.ConflictEntry(local, remote, res)); err != nil {
			return err
		}
		result.Conflicts++
	}
	return nil
}

// mergePersonalRecords merges by exercise rather than record id, so two
// devices that minted separate rows for the same lift converge on the
// heavier one. When a remote row beats a differently-keyed local row,
// the local loser is removed; its own remote copy will lose the same
// comparison on every other device.
func (o *Orchestrator) mergePersonalRecords(remotes []models.Record, result *Result) error {
	locals, err := o.store.GetActive(models.TypePersonalRecords)
	if err != nil {
		return err
	}
	byExercise := make(map[models.UUID]*models.PersonalRecord, len(locals))
	for _, rec := range locals {
		pr := rec.(*models.PersonalRecord)
		byExercise[pr.ExerciseID] = pr
	}

	for _, rec := range remotes {
		remote := rec.(*models.PersonalRecord)

		if remote.Deleted {
			if err := o.mergeOne(models.TypePersonalRecords, remote, result); err != nil {
				return err
			}
			continue
		}

		local, ok := byExercise[remote.ExerciseID]
		if !ok {
			if err := o.store.SaveRemote(remote); err != nil {
				return err
			}
			byExercise[remote.ExerciseID] = remote
			result.Downloaded++
			continue
		}

		if local.ID == remote.ID {
			if err := o.mergeOne(models.TypePersonalRecords, remote, result); err != nil {
				return err
			}
			if remote.Beats(local) {
				byExercise[remote.ExerciseID] = remote
			}
			continue
		}

		// Same exercise, different rows.
		res := o.resolver.Resolve(local, remote)
		if res.Winner == WinnerRemote {
			if err := o.store.SaveRemote(remote); err != nil {
				return err
			}
			if err := o.store.HardDelete(models.TypePersonalRecords, local.ID); err != nil && !db.IsNotFound(err) {
				return err
			}
			byExercise[remote.ExerciseID] = remote
			result.Downloaded++
		} else {
			result.Skipped++
		}
		if err := o.store.LogConflict(o.resolver.ConflictEntry(local, remote, res)); err != nil {
			return err
		}
		result.Conflicts++
	}
	return nil
}

// attemptUpload pushes one record right now, tombstone or live. It does
// not touch the retry queue.
func (o *Orchestrator) attemptUpload(ctx context.Context, t models.EntityType, id models.UUID) error {
	mirror, err := o.preflight(ctx)
	if err != nil {
		return err
	}

	rec, err := o.store.Get(t, id)
	if err != nil {
		return err
	}
	if rec.Meta().Deleted {
		if err := mirror.MarkDeleted(ctx, rec); err != nil {
			return err
		}
		return o.store.HardDelete(t, id)
	}
	if !rec.Meta().IsDirty() {
		return nil
	}

	syncedAt, err := mirror.Upload(ctx, rec)
	if err != nil {
		return err
	}
	return o.store.MarkSynced(t, id, syncedAt)
}

// uploadOne attempts an immediate upload of one record, queueing it for
// retry on failure. Returns whether the record is now synced. A cycle in
// flight defers the record to the queue instead of interleaving with it.
func (o *Orchestrator) uploadOne(ctx context.Context, t models.EntityType, id models.UUID) bool {
	if !o.syncMu.TryLock() {
		o.enqueueRetry(t, id)
		return false
	}
	defer o.syncMu.Unlock()

	if err := o.attemptUpload(ctx, t, id); err != nil {
		if !db.IsNotFound(err) {
			o.enqueueRetry(t, id)
		}
		return false
	}
	o.queue.Complete(t, id)
	return true
}

// enqueueRetry schedules a record for retry and surfaces a full queue
// in the log. A dropped record stays pending and the next full sync
// carries it.
func (o *Orchestrator) enqueueRetry(t models.EntityType, id models.UUID) {
	if _, err := o.queue.Enqueue(t, id); err != nil {
		o.logger.Warn("retry enqueue dropped", map[string]interface{}{
			"entity_type": string(t),
			"record_id":   string(id),
			"error":       err.Error(),
		})
	}
}

// UploadRecord pushes one record of any synced type without waiting for
// the next full sync. Fire-and-forget: a failure is queued for retry.
func (o *Orchestrator) UploadRecord(ctx context.Context, t models.EntityType, id models.UUID) bool {
	return o.uploadOne(ctx, t, id)
}

// UploadWorkoutSession pushes one session without waiting for the next
// full sync. Fire-and-forget: a failure is queued for retry.
func (o *Orchestrator) UploadWorkoutSession(ctx context.Context, id models.UUID) bool {
	return o.uploadOne(ctx, models.TypeSessions, id)
}

// UploadPersonalRecord pushes one personal record immediately.
func (o *Orchestrator) UploadPersonalRecord(ctx context.Context, id models.UUID) bool {
	return o.uploadOne(ctx, models.TypePersonalRecords, id)
}

// UploadMeasurement pushes one body measurement immediately.
func (o *Orchestrator) UploadMeasurement(ctx context.Context, id models.UUID) bool {
	return o.uploadOne(ctx, models.TypeBodyMeasurements, id)
}

// StartNetworkListener watches connectivity and triggers a full sync on
// every offline-to-online transition. It returns a stop function.
func (o *Orchestrator) StartNetworkListener(ctx context.Context) func() {
	o.setOnline(o.conn.IsConnected(ctx))

	unsubscribe := o.conn.Subscribe(func(online bool) {
		o.setOnline(online)
		if !online {
			return
		}

		o.logger.Info("connectivity restored, triggering sync", nil)
		o.queue.RetryAll()
		go func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := o.PerformFullSync(syncCtx); err != nil && !apperrors.Is(err, apperrors.ErrSyncInProgress) {
				o.logger.Error("reconnect sync failed", err, nil)
			}
		}()
	})
	return unsubscribe
}

// StartRetryWorker drains the retry queue on an interval until ctx is
// done. Failed attempts back off exponentially.
func (o *Orchestrator) StartRetryWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.processRetries(ctx)
			}
		}
	}()
}

func (o *Orchestrator) processRetries(ctx context.Context) {
	if !o.syncMu.TryLock() {
		// A cycle is in flight; it will pick these records up as
		// pending anyway. Try again next tick.
		return
	}
	defer o.syncMu.Unlock()

	for _, item := range o.queue.Ready() {
		err := o.attemptUpload(ctx, item.EntityType, item.RecordID)
		switch {
		case err == nil, db.IsNotFound(err):
			o.queue.Complete(item.EntityType, item.RecordID)
		default:
			o.queue.Failed(item.EntityType, item.RecordID, err)
		}
	}
}
