package handlers

import (
	"net/http"

	"memories-backend/internal/middleware"
	"memories-backend/internal/models"
	"memories-backend/internal/services"
)

// DeepLinkHandler handles inbound invitation links
type DeepLinkHandler struct {
	deepLinkService *services.DeepLinkService
}

// NewDeepLinkHandler creates a new deep link handler
func NewDeepLinkHandler(deepLinkService *services.DeepLinkService) *DeepLinkHandler {
	return &DeepLinkHandler{
		deepLinkService: deepLinkService,
	}
}

// ResolveRequest carries the URL the app was opened with
type ResolveRequest struct {
	URL string `json:"url"`
}

// RespondRequest carries the user's answer to the prompt
type RespondRequest struct {
	InviterID string `json:"inviter_id"`
	FriendID  string `json:"friend_id"`
	Accept    bool   `json:"accept"`
}

// Resolve handles POST /api/v1/deeplinks/resolve
func (h *DeepLinkHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, h.deepLinkService.Reconcile(r.Context(), req.URL))
}

// Respond handles POST /api/v1/deeplinks/respond
func (h *DeepLinkHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	decision := models.DeepLinkDecision{InviterID: req.InviterID, FriendID: req.FriendID}
	friendship, err := h.deepLinkService.Respond(ctx, middleware.GetUserID(ctx), decision, req.Accept)
	if err != nil {
		respondServiceError(w, r, err, "Failed to respond to invitation")
		return
	}
	if friendship == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, http.StatusOK, friendship)
}
