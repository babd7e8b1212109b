package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"memories-backend/internal/docstore"
	"memories-backend/internal/models"
	"memories-backend/internal/repository"
	"memories-backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]WSMessage
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]WSMessage)}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID string, message WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[userID] = append(n.events[userID], message)
}

func (n *recordingNotifier) Types(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]string, 0, len(n.events[userID]))
	for _, e := range n.events[userID] {
		types = append(types, e.Type)
	}
	return types
}

// faultyStore wraps a store and fails selected calls
type faultyStore struct {
	docstore.Store
	mu        sync.Mutex
	createErr func(collection string, fields map[string]any) error
	getErr    func(collection, id string) error
	listErr   func(collection string) error
}

func (s *faultyStore) Create(ctx context.Context, collection, id string, fields map[string]any) (*docstore.Document, error) {
	s.mu.Lock()
	fn := s.createErr
	s.mu.Unlock()
	if fn != nil {
		if err := fn(collection, fields); err != nil {
			return nil, err
		}
	}
	return s.Store.Create(ctx, collection, id, fields)
}

func (s *faultyStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	s.mu.Lock()
	fn := s.getErr
	s.mu.Unlock()
	if fn != nil {
		if err := fn(collection, id); err != nil {
			return nil, err
		}
	}
	return s.Store.Get(ctx, collection, id)
}

func (s *faultyStore) List(ctx context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	s.mu.Lock()
	fn := s.listErr
	s.mu.Unlock()
	if fn != nil {
		if err := fn(collection); err != nil {
			return nil, err
		}
	}
	return s.Store.List(ctx, collection, filters...)
}

func remoteDown(what string) error {
	return fmt.Errorf("%s: %w", what, models.ErrRemoteUnavailable)
}

type fixture struct {
	store    *faultyStore
	objects  *storage.MemoryStore
	redis    *redis.Client
	mr       *miniredis.Miniredis
	notifier *recordingNotifier

	userRepo       *repository.UserRepository
	friendshipRepo *repository.FriendshipRepository
	imageRepo      *repository.ImageRepository
	manualRepo     *repository.ManualContactRepository
	sessionRepo    *repository.SessionRepository

	users       *UserService
	friendships *FriendshipService
	images      *ImageService
	deepLinks   *DeepLinkService
	contacts    *ContactService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	f := &fixture{
		store:    &faultyStore{Store: docstore.NewMemoryStore()},
		objects:  storage.NewMemoryStore("images"),
		redis:    client,
		mr:       mr,
		notifier: newRecordingNotifier(),
	}

	f.userRepo = repository.NewUserRepository(f.store)
	f.friendshipRepo = repository.NewFriendshipRepository(f.store)
	f.imageRepo = repository.NewImageRepository(f.store)
	f.manualRepo = repository.NewManualContactRepository(client)
	f.sessionRepo = repository.NewSessionRepository(client)

	f.users = NewUserService(f.userRepo)
	f.friendships = NewFriendshipService(f.friendshipRepo, f.userRepo, f.notifier)
	f.images = NewImageService(f.imageRepo, f.objects, f.notifier)
	f.deepLinks = NewDeepLinkService(f.friendships, "")
	f.contacts = NewContactService(f.userRepo, f.manualRepo, f.friendships, f.deepLinks)
	return f
}

func (f *fixture) addUser(t *testing.T, id, name, phone string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Name: name, PhoneNumber: phone, CreatedAt: time.Now().UTC()}
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	return user
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	edge, err := f.friendships.RequestFriendship(ctx, a, b)
	require.NoError(t, err)
	_, err = f.friendships.Accept(ctx, edge.ID)
	require.NoError(t, err)
}
