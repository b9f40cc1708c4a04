package syncer

import (
	"fmt"
	"sync"
	"time"

	"github.com/kbradley/liftlog/internal/models"
	"github.com/kbradley/liftlog/internal/uuid"
)

// RetryState is the lifecycle of a queued upload.
type RetryState string

const (
	RetryPending    RetryState = "pending"
	RetryInProgress RetryState = "in_progress"
	RetryFailed     RetryState = "failed"
)

// RetryItem is one record upload awaiting retry.
type RetryItem struct {
	ID          string
	EntityType  models.EntityType
	RecordID    models.UUID
	RetryCount  int
	MaxRetries  int
	NextRetryAt int64
	State       RetryState
	CreatedAt   int64
	UpdatedAt   int64
	LastError   string
}

// RetryQueue holds failed record uploads for retry with exponential
// backoff. One entry per record: re-enqueueing a record resets its
// schedule instead of duplicating it.
type RetryQueue struct {
	mu      sync.RWMutex
	items   map[string]*RetryItem // keyed by entityType/recordID
	maxSize int
}

const defaultMaxQueueSize = 1000

// NewRetryQueue creates an empty queue.
func NewRetryQueue(maxSize int) *RetryQueue {
	if maxSize <= 0 {
		maxSize = defaultMaxQueueSize
	}
	return &RetryQueue{
		items:   make(map[string]*RetryItem),
		maxSize: maxSize,
	}
}

func queueKey(t models.EntityType, id models.UUID) string {
	return string(t) + "/" + string(id)
}

// Enqueue schedules a record for retry. The first attempt is due
// immediately.
func (q *RetryQueue) Enqueue(t models.EntityType, id models.UUID) (*RetryItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := queueKey(t, id)
	now := time.Now().Unix()

	if item, ok := q.items[key]; ok {
		item.RetryCount = 0
		item.NextRetryAt = now
		item.State = RetryPending
		item.UpdatedAt = now
		item.LastError = ""
		copied := *item
		return &copied, nil
	}

	if len(q.items) >= q.maxSize {
		return nil, fmt.Errorf("retry queue is full (max size: %d)", q.maxSize)
	}

	item := &RetryItem{
		ID:          uuid.New(),
		EntityType:  t,
		RecordID:    id,
		MaxRetries:  3,
		NextRetryAt: now,
		State:       RetryPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q.items[key] = item

	copied := *item
	return &copied, nil
}

// Ready returns the items due for retry and marks them in progress.
func (q *RetryQueue) Ready() []*RetryItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().Unix()
	var ready []*RetryItem
	for _, item := range q.items {
		if item.State == RetryPending && item.NextRetryAt <= now {
			item.State = RetryInProgress
			item.UpdatedAt = now
			copied := *item
			ready = append(ready, &copied)
		}
	}
	return ready
}

// Complete removes a successfully uploaded item.
func (q *RetryQueue) Complete(t models.EntityType, id models.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, queueKey(t, id))
}

// Failed reschedules an item after a failed attempt. Once retries are
// exhausted the item stays parked as failed until RetryAll or the next
// full sync picks the record up.
func (q *RetryQueue) Failed(t models.EntityType, id models.UUID, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[queueKey(t, id)]
	if !ok {
		return
	}

	item.RetryCount++
	item.LastError = err.Error()
	item.UpdatedAt = time.Now().Unix()

	if item.RetryCount >= item.MaxRetries {
		item.State = RetryFailed
		return
	}

	item.NextRetryAt = time.Now().Unix() + backoffSeconds(item.RetryCount)
	item.State = RetryPending
}

// backoffSeconds is 2^retryCount minutes, capped at one hour.
func backoffSeconds(retryCount int) int64 {
	backoff := (int64(1) << uint(retryCount)) * 60
	if backoff > 3600 {
		backoff = 3600
	}
	return backoff
}

// RetryAll resets parked failures for another round of attempts.
func (q *RetryQueue) RetryAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().Unix()
	count := 0
	for _, item := range q.items {
		if item.State == RetryFailed {
			item.State = RetryPending
			item.RetryCount = 0
			item.NextRetryAt = now
			item.LastError = ""
			item.UpdatedAt = now
			count++
		}
	}
	return count
}

// Size returns the number of queued items.
func (q *RetryQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Stats returns per-state counts.
func (q *RetryQueue) Stats() map[string]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := map[string]int{
		"total":       len(q.items),
		"pending":     0,
		"in_progress": 0,
		"failed":      0,
	}
	for _, item := range q.items {
		switch item.State {
		case RetryPending:
			stats["pending"]++
		case RetryInProgress:
			stats["in_progress"]++
		case RetryFailed:
			stats["failed"]++
		}
	}
	return stats
}
