package handlers

import (
	"net/http"
	"time"

	"memories-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// API groups every handler mounted by the router
type API struct {
	Users          *UserHandler
	Friendships    *FriendshipHandler
	Images         *ImageHandler
	Contacts       *ContactHandler
	DeepLinks      *DeepLinkHandler
	WebSocket      *WebSocketHandler
	Health         *HealthHandler
	Validator      middleware.TokenValidator
	AllowedOrigins []string
}

// NewRouter builds the HTTP router
func NewRouter(api API) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: api.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", api.Health.Live)
	r.Get("/readyz", api.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/sessions", api.Users.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(api.Validator))

			r.Delete("/sessions", api.Users.Logout)
			r.Get("/me", api.Users.GetMe)
			r.Patch("/me", api.Users.UpdateMe)
			r.Get("/users", api.Users.SearchUsers)

			r.Post("/friendships", api.Friendships.RequestFriendship)
			r.Get("/friendships/pending", api.Friendships.ListPending)
			r.Get("/friendships/{peer_id}", api.Friendships.CheckStatus)
			r.Post("/friendships/{edge_id}/accept", api.Friendships.Accept)
			r.Get("/friends", api.Friendships.ListFriends)

			r.Post("/images", api.Images.SendImage)
			r.Get("/images/undelivered", api.Images.ListUndelivered)
			r.Post("/images/{image_id}/viewed", api.Images.MarkViewed)

			r.Post("/contacts/sync", api.Contacts.SyncContacts)
			r.Post("/contacts/manual", api.Contacts.AddManualContact)
			r.Post("/invites", api.Contacts.PrepareInvite)
			r.Post("/invites/confirm", api.Contacts.ConfirmInvite)

			r.Post("/deeplinks/resolve", api.DeepLinks.Resolve)
			r.Post("/deeplinks/respond", api.DeepLinks.Respond)
		})
	})

	r.Get("/ws", api.WebSocket.HandleWebSocket)

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", chiMiddleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
