package services

import (
	"context"
	"fmt"
	"strings"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const minSearchLength = 2

// UserService handles user-related business logic
type UserService struct {
	userRepo *repository.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the mutable profile fields. Phone numbers are
// stored normalized so contacts can be matched against them.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update repository.UserProfileUpdate) (*models.User, error) {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", models.ErrInvalidRequest)
		}
		update.Name = &name
	}
	if update.PhoneNumber != nil && *update.PhoneNumber != "" {
		phone := NormalizePhone(*update.PhoneNumber)
		if phone == "" {
			return nil, fmt.Errorf("phone number has no digits: %w", models.ErrInvalidRequest)
		}
		update.PhoneNumber = &phone
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	return user, nil
}

// Search returns the public profiles of other users whose name contains
// the query
func (s *UserService) Search(ctx context.Context, userID, query string) ([]models.UserProfile, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return nil, fmt.Errorf("query must have at least %d characters: %w", minSearchLength, models.ErrInvalidRequest)
	}

	users, err := s.userRepo.SearchByName(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	results := make([]models.UserProfile, 0, len(users))
	for _, user := range users {
		if user.ID == userID {
			continue
		}
		results = append(results, user.Profile())
	}
	return results, nil
}
