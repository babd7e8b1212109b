package services

import (
	"context"
	"fmt"
	"time"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"
	"memories-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ImageService handles image delivery and the single view lifecycle
type ImageService struct {
	imageRepo *repository.ImageRepository
	objects   storage.ObjectStore
	notifier  Notifier
	now       func() time.Time
}

// NewImageService creates a new image service
func NewImageService(imageRepo *repository.ImageRepository, objects storage.ObjectStore, notifier Notifier) *ImageService {
	return &ImageService{
		imageRepo: imageRepo,
		objects:   objects,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Send uploads the file once and writes one metadata record per recipient.
// Recipient writes run concurrently and all of them settle before Send
// returns. When some of them fail the result lists them and the error wraps
// models.ErrPartialDelivery. Nothing is rolled back.
func (s *ImageService) Send(ctx context.Context, file storage.File, senderID string, recipientIDs []string) (*models.DeliveryResult, error) {
	recipients := uniqueIDs(recipientIDs, senderID)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("at least one recipient is required: %w", models.ErrInvalidRequest)
	}

	imageID := uuid.New().String()
	if _, err := s.objects.CreateFile(ctx, imageID, file); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	createdAt := s.now().UTC()
	outcomes := make([]error, len(recipients))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, recipientID := range recipients {
		g.Go(func() error {
			_, err := s.imageRepo.Create(gctx, &models.ImageShare{
				ImageID:     imageID,
				SenderID:    senderID,
				RecipientID: recipientID,
				CreatedAt:   createdAt,
			})
			outcomes[i] = err
			return nil
		})
	}
	_ = g.Wait()

	result := &models.DeliveryResult{
		ImageID:   imageID,
		Delivered: make([]string, 0, len(recipients)),
		Failed:    []string{},
	}
	for i, recipientID := range recipients {
		if outcomes[i] != nil {
			log.Error().
				Err(outcomes[i]).
				Str("image_id", imageID).
				Str("recipient_id", recipientID).
				Msg("Failed to deliver image")
			result.Failed = append(result.Failed, recipientID)
			continue
		}
		result.Delivered = append(result.Delivered, recipientID)
		s.notify(ctx, recipientID, WSMessage{Type: EventImageReceived, UserID: senderID, ImageID: imageID})
	}

	log.Info().
		Str("image_id", imageID).
		Str("sender_id", senderID).
		Int("delivered", len(result.Delivered)).
		Int("failed", len(result.Failed)).
		Msg("Image sent")

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%d of %d recipients failed: %w", len(result.Failed), len(recipients), models.ErrPartialDelivery)
	}
	return result, nil
}

// ListUndelivered returns the images addressed to the user that were not
// viewed yet, each with a view URL
func (s *ImageService) ListUndelivered(ctx context.Context, userID string) ([]*models.ImageShare, error) {
	shares, err := s.imageRepo.ListUnviewed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered images: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, share := range shares {
		g.Go(func() error {
			view, err := s.objects.GetFileView(gctx, share.ImageID)
			if err != nil {
				log.Warn().Err(err).Str("image_id", share.ImageID).Msg("Failed to resolve image view")
				return nil
			}
			share.ViewURL = view.URL
			return nil
		})
	}
	_ = g.Wait()

	return shares, nil
}

// MarkViewed stamps the recipient's share as viewed. Only the first call
// stamps; later calls return the share unchanged.
func (s *ImageService) MarkViewed(ctx context.Context, imageID, recipientID string) (*models.ImageShare, error) {
	share, err := s.imageRepo.FindByImageAndRecipient(ctx, imageID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to find image: %w", err)
	}

	updated, changed, err := s.imageRepo.MarkViewed(ctx, share.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark image viewed: %w", err)
	}

	if changed {
		log.Info().
			Str("image_id", imageID).
			Str("recipient_id", recipientID).
			Msg("Image viewed")
		s.notify(ctx, updated.SenderID, WSMessage{Type: EventImageViewed, UserID: recipientID, ImageID: imageID})
	}
	return updated, nil
}

// ViewURL resolves a renderable reference for the image
func (s *ImageService) ViewURL(ctx context.Context, imageID string) (*storage.ViewRef, error) {
	view, err := s.objects.GetFileView(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image view: %w", err)
	}
	return view, nil
}

// pendingShare returns the unviewed share of the image for the recipient
func (s *ImageService) pendingShare(ctx context.Context, imageID, recipientID string) (*models.ImageShare, error) {
	share, err := s.imageRepo.FindByImageAndRecipient(ctx, imageID, recipientID)
	if err != nil {
		return nil, err
	}
	if share.IsViewed {
		return nil, fmt.Errorf("image %s already viewed: %w", imageID, models.ErrConflict)
	}
	return share, nil
}

func (s *ImageService) notify(ctx context.Context, userID string, message WSMessage) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, message)
}

// uniqueIDs drops empty, repeated and excluded ids, keeping first-seen order
func uniqueIDs(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
