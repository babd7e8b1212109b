package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"memories-backend/internal/docstore"
	"memories-backend/internal/models"
	"memories-backend/internal/repository"
	"memories-backend/internal/services"
	"memories-backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testDwell = 100 * time.Millisecond

// prefixVerifier accepts ID tokens of the form "id-<uid>"
type prefixVerifier struct{}

func (prefixVerifier) VerifyIDToken(ctx context.Context, idToken string) (*services.Identity, error) {
	uid, ok := strings.CutPrefix(idToken, "id-")
	if !ok || uid == "" {
		return nil, fmt.Errorf("unknown id token: %w", models.ErrUnauthorized)
	}
	return &services.Identity{UID: uid, Name: uid, Email: uid + "@example.com"}, nil
}

type testServer struct {
	srv      *httptest.Server
	userRepo *repository.UserRepository
	images   *services.ImageService
	hub      *services.WSHub
	tracker  *services.ViewTracker
}

func newTestServer(t *testing.T, checks map[string]Check) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := docstore.NewMemoryStore()
	objects := storage.NewMemoryStore("images")

	userRepo := repository.NewUserRepository(store)
	friendshipRepo := repository.NewFriendshipRepository(store)
	imageRepo := repository.NewImageRepository(store)
	manualRepo := repository.NewManualContactRepository(rdb)
	sessionRepo := repository.NewSessionRepository(rdb)

	hub := services.NewWSHub()
	notifier := services.NewNotificationService(hub, userRepo, nil)
	userService := services.NewUserService(userRepo)
	sessionService := services.NewSessionService(prefixVerifier{}, userRepo, sessionRepo, "handler-secret", time.Hour)
	friendshipService := services.NewFriendshipService(friendshipRepo, userRepo, notifier)
	imageService := services.NewImageService(imageRepo, objects, notifier)
	tracker := services.NewViewTracker(imageService, testDwell)
	deepLinkService := services.NewDeepLinkService(friendshipService, "")
	contactService := services.NewContactService(userRepo, manualRepo, friendshipService, deepLinkService)

	router := NewRouter(API{
		Users:          NewUserHandler(userService, sessionService),
		Friendships:    NewFriendshipHandler(friendshipService),
		Images:         NewImageHandler(imageService),
		Contacts:       NewContactHandler(contactService),
		DeepLinks:      NewDeepLinkHandler(deepLinkService),
		WebSocket:      NewWebSocketHandler(hub, sessionService, tracker, deepLinkService),
		Health:         NewHealthHandler(checks),
		Validator:      sessionService,
		AllowedOrigins: []string{"*"},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		tracker.Close()
		hub.Close()
		srv.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testServer{
		srv:      srv,
		userRepo: userRepo,
		images:   imageService,
		hub:      hub,
		tracker:  tracker,
	}
}

// login creates the user (with a phone number when given) and returns a session token
func (ts *testServer) login(t *testing.T, uid, phone string) string {
	t.Helper()
	if phone != "" {
		require.NoError(t, ts.userRepo.Create(context.Background(), &models.User{
			ID:          uid,
			Name:        uid,
			PhoneNumber: phone,
			CreatedAt:   time.Now().UTC(),
		}))
	}

	resp := ts.do(t, http.MethodPost, "/api/v1/sessions", "", LoginRequest{IDToken: "id-" + uid})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decode[models.Session](t, resp)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
