package handlers

import (
	"net/http"

	"memories-backend/internal/middleware"
	"memories-backend/internal/repository"
	"memories-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles sessions and user profile HTTP requests
type UserHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, sessionService *services.SessionService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		sessionService: sessionService,
	}
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	IDToken string `json:"id_token"`
}

// Login handles POST /api/v1/sessions
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		respondError(w, "id_token is required", http.StatusBadRequest)
		return
	}

	session, err := h.sessionService.Login(r.Context(), req.IDToken)
	if err != nil {
		respondServiceError(w, r, err, "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Logout handles DELETE /api/v1/sessions
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.sessionService.Logout(ctx, middleware.GetToken(ctx)); err != nil {
		respondServiceError(w, r, err, "Failed to log out")
		return
	}

	log.Info().Str("user_id", middleware.GetUserID(ctx)).Msg("User logged out")
	w.WriteHeader(http.StatusNoContent)
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.userService.GetUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/v1/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req repository.UserProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(ctx, middleware.GetUserID(ctx), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// SearchUsers handles GET /api/v1/users?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.userService.Search(ctx, middleware.GetUserID(ctx), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to search users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}
