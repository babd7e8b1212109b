package services

import (
	"context"
	"fmt"
	"net/url"

	"memories-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// Deep link query parameters
const (
	paramFriendID = "friendId"
	paramUserID   = "userId"
)

// DefaultLinkScheme is the app scheme used when none is configured
const DefaultLinkScheme = "memories"

// DeepLinkService builds invitation links and decides whether an inbound
// link should prompt the user
type DeepLinkService struct {
	friendshipService *FriendshipService
	scheme            string
}

// NewDeepLinkService creates a new deep link service
func NewDeepLinkService(friendshipService *FriendshipService, scheme string) *DeepLinkService {
	if scheme == "" {
		scheme = DefaultLinkScheme
	}
	return &DeepLinkService{
		friendshipService: friendshipService,
		scheme:            scheme,
	}
}

// BuildInviteURL returns the link the inviter sends to the target
func (s *DeepLinkService) BuildInviteURL(inviterID, targetID string) string {
	q := url.Values{}
	q.Set(paramFriendID, targetID)
	q.Set(paramUserID, inviterID)
	return s.scheme + "://?" + q.Encode()
}

// Reconcile parses an inbound link and reports whether to show the friend
// request prompt. It never changes state.
func (s *DeepLinkService) Reconcile(ctx context.Context, rawURL string) models.DeepLinkDecision {
	decision := models.DeepLinkDecision{ShowPrompt: false, Status: models.FriendshipStatusNone}

	u, err := url.Parse(rawURL)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("Ignoring unparsable deep link")
		return decision
	}

	q := u.Query()
	friendID, inviterID := q.Get(paramFriendID), q.Get(paramUserID)
	if friendID == "" || inviterID == "" {
		return decision
	}
	decision.FriendID = friendID
	decision.InviterID = inviterID

	check := s.friendshipService.CheckStatus(ctx, inviterID, friendID)
	decision.Status = check.Status
	decision.ShowPrompt = !check.AreFriends && inviterID != friendID
	return decision
}

// Respond applies the user's answer to a prompt. Accepting accepts the
// edge only when the responder is its requested user; declining changes
// nothing.
func (s *DeepLinkService) Respond(ctx context.Context, responderID string, decision models.DeepLinkDecision, accept bool) (*models.Friendship, error) {
	if decision.InviterID == "" || decision.FriendID == "" {
		return nil, fmt.Errorf("inviter and friend are required: %w", models.ErrInvalidRequest)
	}
	if responderID != decision.FriendID {
		return nil, fmt.Errorf("invitation is addressed to another user: %w", models.ErrForbidden)
	}
	if !accept {
		log.Info().
			Str("inviter_id", decision.InviterID).
			Str("friend_id", decision.FriendID).
			Msg("Friend request prompt declined")
		return nil, nil
	}

	return s.friendshipService.AcceptAs(ctx, responderID, models.FriendshipKey(decision.InviterID, decision.FriendID))
}
