package memory

import (
	"context"
	"sync"

	"segment-flow-lab/internal/storage"
)

// BlobStore is an in-memory implementation of storage.BlobStore.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte // category -> key -> blob
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]map[string][]byte)}
}

// Get returns a copy of the blob. Returns ErrNotFound if not exists.
func (s *BlobStore) Get(_ context.Context, category, key string) ([]byte, error) {
	if err := storage.ValidateAddress(category, key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[category][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Put stores a copy of data.
func (s *BlobStore) Put(_ context.Context, category, key string, data []byte) error {
	if err := storage.ValidateAddress(category, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs[category] == nil {
		s.blobs[category] = make(map[string][]byte)
	}
	s.blobs[category][key] = append([]byte(nil), data...)
	return nil
}

// Clear removes a category, or everything when category is empty.
func (s *BlobStore) Clear(_ context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category == "" {
		s.blobs = make(map[string]map[string][]byte)
		return nil
	}
	delete(s.blobs, category)
	return nil
}

// Len returns the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.blobs {
		n += len(c)
	}
	return n
}

var _ storage.BlobStore = (*BlobStore)(nil)
