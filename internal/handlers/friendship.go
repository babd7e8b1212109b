package handlers

import (
	"net/http"

	"memories-backend/internal/middleware"
	"memories-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendshipHandler handles friendship-related HTTP requests
type FriendshipHandler struct {
	friendshipService *services.FriendshipService
}

// NewFriendshipHandler creates a new friendship handler
func NewFriendshipHandler(friendshipService *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
	}
}

// FriendRequest represents the request body for requesting a friendship
type FriendRequest struct {
	FriendID string `json:"friend_id"`
}

// RequestFriendship handles POST /api/v1/friendships
func (h *FriendshipHandler) RequestFriendship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req FriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FriendID == "" {
		respondError(w, "friend_id is required", http.StatusBadRequest)
		return
	}

	friendship, err := h.friendshipService.RequestFriendship(ctx, userID, req.FriendID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to request friendship")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("friend_id", req.FriendID).
		Str("friendship_id", friendship.ID).
		Str("status", string(friendship.Status)).
		Msg("Friendship requested")

	respondJSON(w, http.StatusOK, friendship)
}

// CheckStatus handles GET /api/v1/friendships/{peer_id}
func (h *FriendshipHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	peerID := chi.URLParam(r, "peer_id")

	check := h.friendshipService.CheckStatus(ctx, middleware.GetUserID(ctx), peerID)
	respondJSON(w, http.StatusOK, check)
}

// Accept handles POST /api/v1/friendships/{edge_id}/accept
func (h *FriendshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	edgeID := chi.URLParam(r, "edge_id")

	friendship, err := h.friendshipService.AcceptAs(ctx, middleware.GetUserID(ctx), edgeID)
	if err != nil {
		respondServiceError(w, r, err, "Failed to accept friendship")
		return
	}

	respondJSON(w, http.StatusOK, friendship)
}

// ListPending handles GET /api/v1/friendships/pending
func (h *FriendshipHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.friendshipService.ListPending(ctx, middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(w, r, err, "Failed to list friend requests")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"requests": pending})
}

// ListFriends handles GET /api/v1/friends
func (h *FriendshipHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	friends := h.friendshipService.ListFriends(ctx, middleware.GetUserID(ctx))
	respondJSON(w, http.StatusOK, map[string]any{"friends": friends})
}
