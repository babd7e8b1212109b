package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const fanOutLimit = 8

// FriendshipService handles friendship-related business logic
type FriendshipService struct {
	friendshipRepo *repository.FriendshipRepository
	userRepo       *repository.UserRepository
	notifier       Notifier
	now            func() time.Time
}

// NewFriendshipService creates a new friendship service
func NewFriendshipService(
	friendshipRepo *repository.FriendshipRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
) *FriendshipService {
	return &FriendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		now:            time.Now,
	}
}

// RequestFriendship creates a pending edge from requester to target. When
// the pair already has an edge it is returned unchanged.
func (s *FriendshipService) RequestFriendship(ctx context.Context, requesterID, targetID string) (*models.Friendship, error) {
	if requesterID == "" || targetID == "" {
		return nil, fmt.Errorf("requester and target are required: %w", models.ErrInvalidRequest)
	}
	if requesterID == targetID {
		return nil, fmt.Errorf("cannot befriend yourself: %w", models.ErrInvalidRequest)
	}

	existing, err := s.friendshipRepo.FindBetween(ctx, requesterID, targetID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing friendship: %w", err)
	}

	friendship, err := s.friendshipRepo.Create(ctx, &models.Friendship{
		RequesterID:      requesterID,
		RequestedID:      targetID,
		Status:           models.FriendshipStatusPending,
		LastInteractedAt: s.now().UTC(),
	})
	if errors.Is(err, models.ErrConflict) {
		return s.friendshipRepo.FindBetween(ctx, requesterID, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to request friendship: %w", err)
	}

	log.Info().
		Str("requester_id", requesterID).
		Str("requested_id", targetID).
		Msg("Friend request created")

	s.notify(ctx, targetID, WSMessage{Type: EventFriendRequest, UserID: requesterID, Data: friendship})
	return friendship, nil
}

// CheckStatus reports the edge between two users in either direction.
// Lookup failures are logged and reported as no edge.
func (s *FriendshipService) CheckStatus(ctx context.Context, userID, peerID string) models.FriendshipCheck {
	none := models.FriendshipCheck{AreFriends: false, Status: models.FriendshipStatusNone}
	if userID == "" || peerID == "" || userID == peerID {
		return none
	}

	friendship, err := s.friendshipRepo.FindBetween(ctx, userID, peerID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error().Err(err).Str("user_id", userID).Str("peer_id", peerID).Msg("Failed to check friendship status")
		}
		return none
	}

	return models.FriendshipCheck{
		AreFriends: friendship.Status == models.FriendshipStatusAccepted,
		Status:     friendship.Status,
	}
}

// Accept moves an edge to accepted. Accepting an accepted edge is a no-op.
func (s *FriendshipService) Accept(ctx context.Context, edgeID string) (*models.Friendship, error) {
	friendship, err := s.friendshipRepo.GetByID(ctx, edgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friendship: %w", err)
	}
	if friendship.Status == models.FriendshipStatusAccepted {
		return friendship, nil
	}

	updated, err := s.friendshipRepo.UpdateStatus(ctx, edgeID, models.FriendshipStatusAccepted, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to accept friendship: %w", err)
	}

	log.Info().
		Str("friendship_id", edgeID).
		Str("requester_id", updated.RequesterID).
		Str("requested_id", updated.RequestedID).
		Msg("Friendship accepted")

	s.notify(ctx, updated.RequesterID, WSMessage{Type: EventFriendAccepted, UserID: updated.RequestedID, Data: updated})
	return updated, nil
}

// AcceptAs accepts an edge on behalf of the requested user
func (s *FriendshipService) AcceptAs(ctx context.Context, userID, edgeID string) (*models.Friendship, error) {
	friendship, err := s.friendshipRepo.GetByID(ctx, edgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friendship: %w", err)
	}
	if friendship.RequestedID != userID {
		return nil, fmt.Errorf("only the requested user can accept: %w", models.ErrForbidden)
	}
	return s.Accept(ctx, edgeID)
}

// ListFriends returns the users the user has an accepted edge with.
// Peers that cannot be resolved are logged and left out.
func (s *FriendshipService) ListFriends(ctx context.Context, userID string) []*models.User {
	friendships, err := s.friendshipRepo.ListAccepted(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friendships")
		return []*models.User{}
	}

	peerIDs := make([]string, 0, len(friendships))
	seen := make(map[string]struct{}, len(friendships))
	for _, f := range friendships {
		peerID := f.Peer(userID)
		if _, ok := seen[peerID]; ok {
			continue
		}
		seen[peerID] = struct{}{}
		peerIDs = append(peerIDs, peerID)
	}

	resolved := make([]*models.User, len(peerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, peerID := range peerIDs {
		g.Go(func() error {
			user, err := s.userRepo.GetByID(gctx, peerID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", userID).Str("peer_id", peerID).Msg("Failed to resolve friend")
				return nil
			}
			resolved[i] = user
			return nil
		})
	}
	_ = g.Wait()

	friends := make([]*models.User, 0, len(resolved))
	for _, user := range resolved {
		if user != nil {
			friends = append(friends, user)
		}
	}
	return friends
}

// ListPending returns the requests waiting for the user to accept
func (s *FriendshipService) ListPending(ctx context.Context, userID string) ([]*models.Friendship, error) {
	friendships, err := s.friendshipRepo.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return friendships, nil
}

func (s *FriendshipService) notify(ctx context.Context, userID string, message WSMessage) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, message)
}
