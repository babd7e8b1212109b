package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"memories-backend/internal/models"
)

// readinessID is never written, so looking it up is a cheap round trip
const readinessID = "__readiness__"

// Document is a schemaless record stored under a collection and id
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Operator is the comparison applied by a Filter
type Operator int

const (
	// OpEqual matches fields equal to the value
	OpEqual Operator = iota
	// OpSearch matches fields containing the value, case-insensitive
	OpSearch
)

// Filter is a predicate on a named document field
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Equal builds an equality filter. A nil value matches missing or null fields.
func Equal(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// Search builds a substring filter
func Search(field, substring string) Filter {
	return Filter{Field: field, Op: OpSearch, Value: substring}
}

// Store is the document store contract used by the repositories.
// Implementations return models.ErrNotFound and models.ErrConflict for
// lookup misses and duplicate ids, and wrap every transport failure in
// models.ErrRemoteUnavailable.
type Store interface {
	// Create inserts a new document. An empty id is replaced with a generated one.
	Create(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)
	// Get fetches one document by id
	Get(ctx context.Context, collection, id string) (*Document, error)
	// List returns every document matching all filters, oldest first
	List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	// Update merges fields into the document if it matches all preconditions
	Update(ctx context.Context, collection, id string, fields map[string]any, preconditions ...Filter) (*Document, error)
	// Close releases the underlying connection
	Close(ctx context.Context) error
}

// Ping checks the store answers a lookup. A miss counts as healthy.
func Ping(ctx context.Context, store Store) error {
	_, err := store.Get(ctx, models.CollectionUsers, readinessID)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("document store unavailable: %w", err)
}

// Encode converts a tagged struct into document fields
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return fields, nil
}

// Decode fills a tagged struct from document fields
func Decode(fields map[string]any, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Matches reports whether fields satisfy every filter
func Matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		value, ok := fields[f.Field]
		switch f.Op {
		case OpEqual:
			if f.Value == nil {
				if ok && value != nil {
					return false
				}
				continue
			}
			if !ok || value == nil || fmt.Sprint(value) != fmt.Sprint(f.Value) {
				return false
			}
		case OpSearch:
			if !ok || value == nil {
				return false
			}
			if !strings.Contains(strings.ToLower(fmt.Sprint(value)), strings.ToLower(fmt.Sprint(f.Value))) {
				return false
			}
		default:
			return false
		}
	}
	return true
}
