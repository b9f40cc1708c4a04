// Package cloud provides the S3-compatible mirror used for sync.
package cloud

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/kbradley/liftlog/internal/errors"
)

// ObjectStore abstracts the bucket operations the mirror needs. S3Client
// implements it against real providers; MemObjectStore backs tests.
type ObjectStore interface {
	// Upload writes data under key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte) error

	// Download returns the object at key. A missing object is an
	// ErrNotFound AppError.
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object at key. Deleting a missing object is
	// not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// MemObjectStore is a map-backed ObjectStore for tests and offline
// development.
type MemObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailNext, when set, makes the next mutating call return it.
	FailNext error
}

// NewMemObjectStore creates an empty in-memory bucket.
func NewMemObjectStore() *MemObjectStore {
	return &MemObjectStore{objects: make(map[string][]byte)}
}

func (m *MemObjectStore) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

// Upload stores a copy of data under key.
func (m *MemObjectStore) Upload(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.objects[key] = copied
	return nil
}

// Download returns a copy of the object at key.
func (m *MemObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "object not found: "+key)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Delete removes the object at key, if present.
func (m *MemObjectStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

// List returns all keys under prefix, sorted.
func (m *MemObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored objects.
func (m *MemObjectStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
