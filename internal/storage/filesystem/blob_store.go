// Package filesystem stores cache blobs as files under a root directory, one
// subdirectory per category.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"segment-flow-lab/internal/storage"
)

const blobExt = ".blob"

// BlobStore implements storage.BlobStore on the local filesystem.
// Writes go to a temp file in the target directory and are renamed into place.
type BlobStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // category/key -> write lock
}

// NewBlobStore creates the root directory if needed.
func NewBlobStore(root string) (*BlobStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob store root: %w", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &BlobStore{root: root, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the store's root directory.
func (s *BlobStore) Root() string {
	return s.root
}

// Get reads a blob. Returns ErrNotFound if the file does not exist.
func (s *BlobStore) Get(_ context.Context, category, key string) ([]byte, error) {
	if err := storage.ValidateAddress(category, key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(category, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s/%s: %w", category, key, err)
	}
	return data, nil
}

// Put writes a blob atomically.
func (s *BlobStore) Put(_ context.Context, category, key string, data []byte) error {
	if err := storage.ValidateAddress(category, key); err != nil {
		return err
	}

	lock := s.lockFor(category + "/" + key)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create category dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(category, key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename blob into place: %w", err)
	}
	return nil
}

// Clear removes a category directory, or every category when empty.
func (s *BlobStore) Clear(_ context.Context, category string) error {
	if category == "" {
		entries, err := os.ReadDir(s.root)
		if err != nil {
			return fmt.Errorf("read cache root: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
					return fmt.Errorf("clear %s: %w", e.Name(), err)
				}
			}
		}
		return nil
	}

	if err := storage.ValidateAddress(category, "_"); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.root, category)); err != nil {
		return fmt.Errorf("clear %s: %w", category, err)
	}
	return nil
}

func (s *BlobStore) path(category, key string) string {
	return filepath.Join(s.root, category, key+blobExt)
}

func (s *BlobStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

var _ storage.BlobStore = (*BlobStore)(nil)
