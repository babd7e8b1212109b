package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memories-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// SessionRepository tracks live login sessions in Redis
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// Create stores the session owner until the ttl elapses
func (r *SessionRepository) Create(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKeyPrefix+sessionID, userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to create session: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return nil
}

// GetUserID returns the owner of a live session
func (r *SessionRepository) GetUserID(ctx context.Context, sessionID string) (string, error) {
	userID, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get session: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return userID, nil
}

// Delete ends a session
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return nil
}
