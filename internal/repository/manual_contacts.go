package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"memories-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	manualContactsKeyPrefix = "contacts:manual:"
	maxMergeAttempts        = 5
)

// ManualContactRepository persists the contacts a user picked by hand, one
// JSON list per user
type ManualContactRepository struct {
	client *redis.Client
}

// NewManualContactRepository creates a new manual contact repository
func NewManualContactRepository(client *redis.Client) *ManualContactRepository {
	return &ManualContactRepository{client: client}
}

func manualContactsKey(userID string) string {
	return manualContactsKeyPrefix + userID
}

// Get returns the stored list, empty when nothing was saved
func (r *ManualContactRepository) Get(ctx context.Context, userID string) ([]models.Contact, error) {
	data, err := r.client.Get(ctx, manualContactsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Contact{}, nil
		}
		return nil, fmt.Errorf("failed to read manual contacts: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return decodeContacts(data)
}

// Put replaces the stored list
func (r *ManualContactRepository) Put(ctx context.Context, userID string, contacts []models.Contact) error {
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("failed to encode manual contacts: %w", err)
	}
	if err := r.client.Set(ctx, manualContactsKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write manual contacts: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return nil
}

// Merge appends the contacts whose ids are not stored yet and returns the
// resulting list. The read-modify-write runs in a WATCH transaction so
// concurrent merges for the same user do not lose entries.
func (r *ManualContactRepository) Merge(ctx context.Context, userID string, contacts ...models.Contact) ([]models.Contact, error) {
	key := manualContactsKey(userID)
	var merged []models.Contact

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		current := []models.Contact{}
		if err == nil {
			if current, err = decodeContacts(data); err != nil {
				return err
			}
		}

		merged = MergeContacts(current, contacts)
		if len(merged) == len(current) {
			return nil
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to merge manual contacts: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return nil, fmt.Errorf("failed to merge manual contacts after %d attempts: %w", maxMergeAttempts, models.ErrConflict)
}

// MergeContacts appends the additions whose ids are not in base, keeping
// the base entry for duplicates
func MergeContacts(base, additions []models.Contact) []models.Contact {
	seen := make(map[string]struct{}, len(base)+len(additions))
	merged := make([]models.Contact, 0, len(base)+len(additions))
	for _, list := range [][]models.Contact{base, additions} {
		for _, c := range list {
			if c.ID == "" {
				continue
			}
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

func decodeContacts(data []byte) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode manual contacts: %w", err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}
