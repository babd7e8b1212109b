package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memories-backend/internal/docstore"
	"memories-backend/internal/models"
)

type imageDocument struct {
	ImageID     string     `json:"image_id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	IsViewed    bool       `json:"is_viewed"`
	ViewedAt    *time.Time `json:"viewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ImageRepository handles document store operations for image shares
type ImageRepository struct {
	store docstore.Store
}

// NewImageRepository creates a new image repository
func NewImageRepository(store docstore.Store) *ImageRepository {
	return &ImageRepository{store: store}
}

// Create creates the metadata record of one recipient
func (r *ImageRepository) Create(ctx context.Context, share *models.ImageShare) (*models.ImageShare, error) {
	fields, err := docstore.Encode(imageDocument{
		ImageID:     share.ImageID,
		SenderID:    share.SenderID,
		RecipientID: share.RecipientID,
		IsViewed:    false,
		ViewedAt:    nil,
		CreatedAt:   share.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Create(ctx, models.CollectionImages, share.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create image metadata: %w", err)
	}
	return decodeImageShare(doc)
}

// GetByID retrieves a share by its record id
func (r *ImageRepository) GetByID(ctx context.Context, id string) (*models.ImageShare, error) {
	doc, err := r.store.Get(ctx, models.CollectionImages, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get image share: %w", err)
	}
	return decodeImageShare(doc)
}

// ListUnviewed returns the shares addressed to the recipient that are not viewed yet
func (r *ImageRepository) ListUnviewed(ctx context.Context, recipientID string) ([]*models.ImageShare, error) {
	docs, err := r.store.List(ctx, models.CollectionImages,
		docstore.Equal("recipient_id", recipientID),
		docstore.Equal("is_viewed", false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unviewed images: %w", err)
	}

	shares := make([]*models.ImageShare, 0, len(docs))
	for _, doc := range docs {
		share, err := decodeImageShare(doc)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// FindByImageAndRecipient retrieves the share of one image for one recipient
func (r *ImageRepository) FindByImageAndRecipient(ctx context.Context, imageID, recipientID string) (*models.ImageShare, error) {
	docs, err := r.store.List(ctx, models.CollectionImages,
		docstore.Equal("image_id", imageID),
		docstore.Equal("recipient_id", recipientID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find image share: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("image %s for recipient %s: %w", imageID, recipientID, models.ErrNotFound)
	}
	return decodeImageShare(docs[0])
}

// MarkViewed flips the share to viewed if it was not viewed yet. The
// returned bool is false when an earlier call already stamped it; the
// share is then returned unchanged.
func (r *ImageRepository) MarkViewed(ctx context.Context, id string, at time.Time) (*models.ImageShare, bool, error) {
	doc, err := r.store.Update(ctx, models.CollectionImages, id,
		map[string]any{"is_viewed": true, "viewed_at": at.UTC()},
		docstore.Equal("is_viewed", false),
	)
	if err == nil {
		share, err := decodeImageShare(doc)
		return share, true, err
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to mark image viewed: %w", err)
	}

	share, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return share, false, nil
}

func decodeImageShare(doc *docstore.Document) (*models.ImageShare, error) {
	var stored imageDocument
	if err := docstore.Decode(doc.Fields, &stored); err != nil {
		return nil, err
	}
	createdAt := stored.CreatedAt
	if createdAt.IsZero() {
		createdAt = doc.CreatedAt
	}
	return &models.ImageShare{
		ID:          doc.ID,
		ImageID:     stored.ImageID,
		SenderID:    stored.SenderID,
		RecipientID: stored.RecipientID,
		IsViewed:    stored.IsViewed,
		ViewedAt:    stored.ViewedAt,
		CreatedAt:   createdAt,
	}, nil
}
