package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"memories-backend/internal/models"
)

var _ ObjectStore = (*MemoryStore)(nil)

type memoryObject struct {
	ref  FileRef
	data []byte
}

// MemoryStore keeps uploaded files in memory
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty in-memory bucket
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]memoryObject)}
}

// CreateFile stores the file body
func (s *MemoryStore) CreateFile(ctx context.Context, id string, file File) (*FileRef, error) {
	var data []byte
	if file.Body != nil {
		var err error
		data, err = io.ReadAll(file.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	ref := FileRef{ID: id, Name: file.Name, ContentType: file.ContentType, Size: int64(len(data))}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[id]; exists {
		return nil, fmt.Errorf("file %s: %w", id, models.ErrConflict)
	}
	s.objects[id] = memoryObject{ref: ref, data: data}
	return &ref, nil
}

// GetFileView returns a memory:// URL for a stored file
func (s *MemoryStore) GetFileView(ctx context.Context, id string) (*ViewRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[id]; !ok {
		return nil, fmt.Errorf("file %s: %w", id, models.ErrNotFound)
	}
	return &ViewRef{URL: fmt.Sprintf("memory://%s/%s", s.bucket, id)}, nil
}

// Open returns the stored bytes of a file
func (s *MemoryStore) Open(id string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(obj.data), true
}

// Count returns the number of stored files
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
