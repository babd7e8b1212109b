package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"memories-backend/internal/middleware"
	"memories-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST routes
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub             *services.WSHub
	validator       middleware.TokenValidator
	tracker         *services.ViewTracker
	deepLinkService *services.DeepLinkService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	validator middleware.TokenValidator,
	tracker *services.ViewTracker,
	deepLinkService *services.DeepLinkService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		validator:       validator,
		tracker:         tracker,
		deepLinkService: deepLinkService,
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := middleware.ValidateWebSocketToken(ctx, r.URL.Query().Get("token"), h.validator)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)
	defer h.tracker.CancelConnection(connID)

	log.Info().Str("user_id", userID).Str("conn_id", connID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		if err := h.handleMessage(ctx, connID, userID, msg); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("type", msg.Type).Msg("Failed to handle message")
			h.sendError(userID, err.Error())
		}
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, connID, userID string, msg services.WSMessage) error {
	switch msg.Type {
	case services.MessageImageReady:
		if msg.ImageID == "" {
			h.sendError(userID, "image_id is required")
			return nil
		}
		_, err := h.tracker.Ready(ctx, connID, userID, msg.ImageID)
		return err
	case services.MessageImageHidden:
		h.tracker.Hidden(connID, userID, msg.ImageID)
		return nil
	case services.MessageDeepLink:
		return h.handleDeepLink(ctx, userID, msg)
	default:
		h.sendError(userID, "Unknown message type")
		return nil
	}
}

// handleDeepLink answers with the prompt decision for the opened link
func (h *WebSocketHandler) handleDeepLink(ctx context.Context, userID string, msg services.WSMessage) error {
	decision := h.deepLinkService.Reconcile(ctx, msg.URL)
	return h.hub.SendToUser(userID, services.WSMessage{
		Type: services.EventPrompt,
		URL:  msg.URL,
		Data: decision,
	})
}

// sendError sends an error event to the user's live connection
func (h *WebSocketHandler) sendError(userID, message string) {
	err := h.hub.SendToUser(userID, services.WSMessage{
		Type:    services.EventError,
		Message: message,
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Failed to send error event")
	}
}
