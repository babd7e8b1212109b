package repository

import (
	"context"
	"fmt"
	"time"

	"memories-backend/internal/docstore"
	"memories-backend/internal/models"
)

type friendshipDocument struct {
	RequesterID      string                  `json:"requester_id"`
	RequestedID      string                  `json:"requested_id"`
	Status           models.FriendshipStatus `json:"status"`
	LastInteractedAt time.Time               `json:"last_interacted_at"`
}

// FriendshipRepository handles document store operations for friendships
type FriendshipRepository struct {
	store docstore.Store
}

// NewFriendshipRepository creates a new friendship repository
func NewFriendshipRepository(store docstore.Store) *FriendshipRepository {
	return &FriendshipRepository{store: store}
}

// Create stores a new edge under its pair key. Fails with models.ErrConflict
// when the pair already has an edge.
func (r *FriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) (*models.Friendship, error) {
	fields, err := docstore.Encode(friendshipDocument{
		RequesterID:      friendship.RequesterID,
		RequestedID:      friendship.RequestedID,
		Status:           friendship.Status,
		LastInteractedAt: friendship.LastInteractedAt,
	})
	if err != nil {
		return nil, err
	}

	id := models.FriendshipKey(friendship.RequesterID, friendship.RequestedID)
	doc, err := r.store.Create(ctx, models.CollectionFriendships, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}
	return decodeFriendship(doc)
}

// GetByID retrieves an edge by its pair key
func (r *FriendshipRepository) GetByID(ctx context.Context, id string) (*models.Friendship, error) {
	doc, err := r.store.Get(ctx, models.CollectionFriendships, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return decodeFriendship(doc)
}

// FindBetween retrieves the edge between two users in either direction
func (r *FriendshipRepository) FindBetween(ctx context.Context, userID, peerID string) (*models.Friendship, error) {
	return r.GetByID(ctx, models.FriendshipKey(userID, peerID))
}

// ListAccepted returns every accepted edge the user is part of
func (r *FriendshipRepository) ListAccepted(ctx context.Context, userID string) ([]*models.Friendship, error) {
	var friendships []*models.Friendship
	for _, side := range []string{"requester_id", "requested_id"} {
		docs, err := r.store.List(ctx, models.CollectionFriendships,
			docstore.Equal(side, userID),
			docstore.Equal("status", string(models.FriendshipStatusAccepted)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to list friendships: %w", err)
		}
		for _, doc := range docs {
			friendship, err := decodeFriendship(doc)
			if err != nil {
				return nil, err
			}
			friendships = append(friendships, friendship)
		}
	}
	return friendships, nil
}

// ListPendingFor returns pending edges waiting for the user to accept
func (r *FriendshipRepository) ListPendingFor(ctx context.Context, userID string) ([]*models.Friendship, error) {
	docs, err := r.store.List(ctx, models.CollectionFriendships,
		docstore.Equal("requested_id", userID),
		docstore.Equal("status", string(models.FriendshipStatusPending)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending friendships: %w", err)
	}

	friendships := make([]*models.Friendship, 0, len(docs))
	for _, doc := range docs {
		friendship, err := decodeFriendship(doc)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, friendship)
	}
	return friendships, nil
}

// UpdateStatus sets the status of an edge and stamps the interaction time
func (r *FriendshipRepository) UpdateStatus(ctx context.Context, id string, status models.FriendshipStatus, at time.Time) (*models.Friendship, error) {
	doc, err := r.store.Update(ctx, models.CollectionFriendships, id, map[string]any{
		"status":             string(status),
		"last_interacted_at": at.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update friendship status: %w", err)
	}
	return decodeFriendship(doc)
}

func decodeFriendship(doc *docstore.Document) (*models.Friendship, error) {
	var stored friendshipDocument
	if err := docstore.Decode(doc.Fields, &stored); err != nil {
		return nil, err
	}
	return &models.Friendship{
		ID:               doc.ID,
		RequesterID:      stored.RequesterID,
		RequestedID:      stored.RequestedID,
		Status:           stored.Status,
		LastInteractedAt: stored.LastInteractedAt,
	}, nil
}
