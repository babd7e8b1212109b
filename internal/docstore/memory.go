package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"memories-backend/internal/models"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	doc *Document
	seq int64
}

// MemoryStore keeps documents in process memory. Used in tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryEntry
	seq         int64
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryEntry),
		now:         time.Now,
	}
}

// Create inserts a new document
func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.New().String()
	}
	normalized, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*memoryEntry)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrConflict)
	}

	now := s.now().UTC()
	s.seq++
	doc := &Document{ID: id, Fields: normalized, CreatedAt: now, UpdatedAt: now}
	docs[id] = &memoryEntry{doc: doc, seq: s.seq}
	return cloneDocument(doc), nil
}

// Get fetches one document by id
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
	}
	return cloneDocument(entry.doc), nil
}

// List returns documents matching all filters in insertion order
func (s *MemoryStore) List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*memoryEntry
	for _, entry := range s.collections[collection] {
		if Matches(entry.doc.Fields, filters) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, cloneDocument(entry.doc))
	}
	return docs, nil
}

// Update merges fields into a document matching the preconditions
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any, preconditions ...Filter) (*Document, error) {
	normalized, err := normalize(fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.collections[collection][id]
	if !ok || !Matches(entry.doc.Fields, preconditions) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, models.ErrNotFound)
	}
	for k, v := range normalized {
		entry.doc.Fields[k] = v
	}
	entry.doc.UpdatedAt = s.now().UTC()
	return cloneDocument(entry.doc), nil
}

// Close is a no-op
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// normalize round-trips fields through JSON so values look the same as
// they do when read back from the database backed stores
func normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	return Encode(fields)
}

func cloneDocument(doc *Document) *Document {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	return &Document{ID: doc.ID, Fields: fields, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}
}
