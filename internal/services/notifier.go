package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// Notifier delivers events to users
type Notifier interface {
	Notify(ctx context.Context, userID string, message WSMessage)
}

// PushSender sends a notification to a device
type PushSender interface {
	Push(ctx context.Context, deviceToken, alert string, data map[string]any) error
}

// APNsPusher sends push notifications through Apple Push Notification service
type APNsPusher struct {
	client *apns2.Client
	topic  string
}

// NewAPNsPusher creates a pusher from a .p12 certificate
func NewAPNsPusher(certPath, password, topic string, production bool) (*APNsPusher, error) {
	cert, err := certificate.FromP12File(certPath, password)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsPusher{client: client, topic: topic}, nil
}

// Push sends one alert to one device
func (p *APNsPusher) Push(ctx context.Context, deviceToken, alert string, data map[string]any) error {
	pl := payload.NewPayload().AlertBody(alert).Sound("default")
	for k, v := range data {
		pl.Custom(k, v)
	}

	res, err := p.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     pl,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w: %w", models.ErrRemoteUnavailable, err)
	}
	if !res.Sent() {
		return fmt.Errorf("push notification rejected: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}

// NotificationService sends events over the user's WebSocket and falls back
// to a push notification when the user is offline
type NotificationService struct {
	hub      *WSHub
	userRepo *repository.UserRepository
	pusher   PushSender
}

// NewNotificationService creates a new notification service. pusher may be nil.
func NewNotificationService(hub *WSHub, userRepo *repository.UserRepository, pusher PushSender) *NotificationService {
	return &NotificationService{
		hub:      hub,
		userRepo: userRepo,
		pusher:   pusher,
	}
}

// Notify delivers the message, logging failures
func (s *NotificationService) Notify(ctx context.Context, userID string, message WSMessage) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	err := s.hub.SendToUser(userID, message)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrUserOffline) {
		log.Warn().Err(err).Str("user_id", userID).Str("type", message.Type).Msg("Failed to send WebSocket event")
	}

	alert := pushAlert(message.Type)
	if s.pusher == nil || alert == "" {
		return
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load user for push")
		return
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return
	}

	data := map[string]any{"type": message.Type}
	if message.UserID != "" {
		data["user_id"] = message.UserID
	}
	if message.ImageID != "" {
		data["image_id"] = message.ImageID
	}
	if err := s.pusher.Push(ctx, *user.PushToken, alert, data); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", message.Type).Msg("Failed to send push notification")
	}
}

func pushAlert(eventType string) string {
	switch eventType {
	case EventFriendRequest:
		return "You have a new friend request"
	case EventFriendAccepted:
		return "Your friend request was accepted"
	case EventImageReceived:
		return "You received a new moment"
	default:
		return ""
	}
}
