package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kbradley/liftlog/internal/errors"
	"github.com/kbradley/liftlog/internal/logging"
	"github.com/kbradley/liftlog/internal/models"
)

// Mirror is the typed view of the bucket the sync engine works with.
// Every record is one JSON object under users/{userId}/{collection}/{id}.json,
// aggregates embedded whole.
type Mirror struct {
	store  ObjectStore
	userID string
	logger *logging.Logger
	now    func() int64
}

// NewMirror creates a Mirror scoped to one user's prefix.
func NewMirror(store ObjectStore, userID string, logger *logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Get()
	}
	return &Mirror{
		store:  store,
		userID: userID,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Key returns the object key for one record.
func (m *Mirror) Key(t models.EntityType, id models.UUID) string {
	return fmt.Sprintf("users/%s/%s/%s.json", m.userID, t, id)
}

func (m *Mirror) prefix(t models.EntityType) string {
	return fmt.Sprintf("users/%s/%s/", m.userID, t)
}

// Upload serializes rec and writes it to the mirror. The stored copy is
// stamped with the current synced-at time, which is also returned so the
// caller can stamp the local row identically.
func (m *Mirror) Upload(ctx context.Context, rec models.Record) (int64, error) {
	copied, err := models.Clone(rec)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternal, "failed to copy record for upload", err)
	}

	syncedAt := m.now()
	copied.Meta().MarkSynced(syncedAt)

	data, err := json.Marshal(copied)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternal, "failed to serialize record", err)
	}

	key := m.Key(rec.EntityType(), rec.Meta().ID)
	if err := m.store.Upload(ctx, key, data); err != nil {
		return 0, err
	}
	return syncedAt, nil
}

// FetchAll downloads every record of one type under the user's prefix.
// Objects that vanish mid-listing or fail to decode are skipped with a
// warning rather than failing the whole download.
func (m *Mirror) FetchAll(ctx context.Context, t models.EntityType) ([]models.Record, error) {
	keys, err := m.store.List(ctx, m.prefix(t))
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}

		data, err := m.store.Download(ctx, key)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}

		rec, err := models.Decode(t, data)
		if err != nil {
			m.logger.Warn("skipping undecodable remote object", map[string]interface{}{
				"key": key,
			})
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// MarkDeleted propagates a local tombstone to the mirror. Workout
// sessions are removed outright; other types are re-uploaded with the
// tombstone flags set so every device converges on the deletion.
func (m *Mirror) MarkDeleted(ctx context.Context, rec models.Record) error {
	if rec.EntityType() == models.TypeSessions {
		return m.store.Delete(ctx, m.Key(models.TypeSessions, rec.Meta().ID))
	}

	if !rec.Meta().Deleted {
		return apperrors.New(apperrors.ErrInvalid, "record is not a tombstone")
	}
	_, err := m.Upload(ctx, rec)
	return err
}
