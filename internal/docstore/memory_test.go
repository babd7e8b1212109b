package docstore

import (
	"context"
	"testing"

	"memories-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.Create(ctx, "users", "u1", map[string]any{"name": "Ana", "age": 3})
	require.NoError(t, err)
	assert.Equal(t, "u1", created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Fields["name"])
	// values are normalized the same way a JSON column returns them
	assert.Equal(t, float64(3), got.Fields["age"])
}

func TestMemoryStore_CreateGeneratesID(t *testing.T) {
	store := NewMemoryStore()

	doc, err := store.Create(context.Background(), "images", "", map[string]any{"a": "b"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
}

func TestMemoryStore_CreateConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, "friendships", "a:b", map[string]any{"status": "pending"})
	require.NoError(t, err)

	_, err = store.Create(ctx, "friendships", "a:b", map[string]any{"status": "accepted"})
	assert.ErrorIs(t, err, models.ErrConflict)

	got, err := store.Get(ctx, "friendships", "a:b")
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Fields["status"])
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "users", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, doc := range []struct {
		id     string
		fields map[string]any
	}{
		{"1", map[string]any{"recipient_id": "b", "is_viewed": false, "name": "Sunset"}},
		{"2", map[string]any{"recipient_id": "b", "is_viewed": true, "name": "Beach"}},
		{"3", map[string]any{"recipient_id": "c", "is_viewed": false, "name": "sunrise"}},
		{"4", map[string]any{"recipient_id": "b", "is_viewed": false, "name": "Dog"}},
	} {
		_, err := store.Create(ctx, "images", doc.id, doc.fields)
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{name: "no filters", want: []string{"1", "2", "3", "4"}},
		{name: "equal string", filters: []Filter{Equal("recipient_id", "b")}, want: []string{"1", "2", "4"}},
		{name: "equal bool", filters: []Filter{Equal("recipient_id", "b"), Equal("is_viewed", false)}, want: []string{"1", "4"}},
		{name: "search case insensitive", filters: []Filter{Search("name", "SUN")}, want: []string{"1", "3"}},
		{name: "no match", filters: []Filter{Equal("recipient_id", "z")}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.List(ctx, "images", tt.filters...)
			require.NoError(t, err)
			ids := []string{}
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_UpdateWithPrecondition(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, "images", "s1", map[string]any{"is_viewed": false, "viewed_at": nil})
	require.NoError(t, err)

	updated, err := store.Update(ctx, "images", "s1",
		map[string]any{"is_viewed": true, "viewed_at": "first"},
		Equal("is_viewed", false))
	require.NoError(t, err)
	assert.Equal(t, true, updated.Fields["is_viewed"])

	_, err = store.Update(ctx, "images", "s1",
		map[string]any{"is_viewed": true, "viewed_at": "second"},
		Equal("is_viewed", false))
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := store.Get(ctx, "images", "s1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Fields["viewed_at"])
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	_, err := NewMemoryStore().Update(context.Background(), "users", "nobody", map[string]any{"name": "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	doc, err := store.Create(ctx, "users", "u1", map[string]any{"name": "Ana"})
	require.NoError(t, err)
	doc.Fields["name"] = "changed"

	got, err := store.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Fields["name"])
}
