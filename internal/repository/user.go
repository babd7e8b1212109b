package repository

import (
	"context"
	"fmt"
	"time"

	"memories-backend/internal/docstore"
	"memories-backend/internal/models"
)

// userDocument is the stored shape of a user
type userDocument struct {
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number"`
	ProfilePicture string    `json:"profile_picture"`
	PushToken      *string   `json:"push_token"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserProfileUpdate holds the mutable profile fields. Nil fields are left unchanged.
type UserProfileUpdate struct {
	Name           *string `json:"name,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	PushToken      *string `json:"push_token,omitempty"`
}

// UserRepository handles document store operations for users
type UserRepository struct {
	store docstore.Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

// Create creates a new user keyed by the auth provider id
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	fields, err := docstore.Encode(userDocument{
		UserID:         user.ID,
		Name:           user.Name,
		Email:          user.Email,
		PhoneNumber:    user.PhoneNumber,
		ProfilePicture: user.ProfilePicture,
		PushToken:      user.PushToken,
		CreatedAt:      user.CreatedAt,
	})
	if err != nil {
		return err
	}
	if _, err := r.store.Create(ctx, models.CollectionUsers, user.ID, fields); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Get(ctx, models.CollectionUsers, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(doc)
}

// GetByPhoneNumber retrieves the first user registered with the phone number
func (r *UserRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error) {
	docs, err := r.store.List(ctx, models.CollectionUsers, docstore.Equal("phone_number", phoneNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone number: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user with phone number: %w", models.ErrNotFound)
	}
	return decodeUser(docs[0])
}

// SearchByName returns users whose name contains the query
func (r *UserRepository) SearchByName(ctx context.Context, query string) ([]*models.User, error) {
	docs, err := r.store.List(ctx, models.CollectionUsers, docstore.Search("name", query))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	users := make([]*models.User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateProfile updates the mutable profile fields of a user
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update UserProfileUpdate) (*models.User, error) {
	fields, err := docstore.Encode(update)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.Update(ctx, models.CollectionUsers, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return decodeUser(doc)
}

func decodeUser(doc *docstore.Document) (*models.User, error) {
	var stored userDocument
	if err := docstore.Decode(doc.Fields, &stored); err != nil {
		return nil, err
	}
	createdAt := stored.CreatedAt
	if createdAt.IsZero() {
		createdAt = doc.CreatedAt
	}
	return &models.User{
		ID:             doc.ID,
		Name:           stored.Name,
		Email:          stored.Email,
		PhoneNumber:    stored.PhoneNumber,
		ProfilePicture: stored.ProfilePicture,
		PushToken:      stored.PushToken,
		CreatedAt:      createdAt,
	}, nil
}
