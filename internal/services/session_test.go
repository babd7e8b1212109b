package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"memories-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	args := m.Called(ctx, idToken)
	if identity, ok := args.Get(0).(*Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

const testSecret = "test-secret"

func newSessionService(t *testing.T, f *fixture, verifier IdentityVerifier) *SessionService {
	t.Helper()
	return NewSessionService(verifier, f.userRepo, f.sessionRepo, testSecret, time.Hour)
}

func TestSessionService_LoginCreatesUserOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := &mockVerifier{}
	verifier.On("VerifyIDToken", mock.Anything, "google-token").
		Return(&Identity{UID: "uid-1", Name: "Priya", Email: "priya@example.com"}, nil)
	svc := newSessionService(t, f, verifier)

	first, err := svc.Login(ctx, "google-token")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", first.User.ID)
	assert.Equal(t, "Priya", first.User.Name)
	assert.Empty(t, first.User.ProfilePicture)
	assert.NotEmpty(t, first.Token)

	stored, err := f.userRepo.GetByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", stored.Email)

	name := "Priya S."
	_, err = f.users.UpdateProfile(ctx, "uid-1", profileUpdate(&name, nil))
	require.NoError(t, err)

	second, err := svc.Login(ctx, "google-token")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Priya S.", second.User.Name)

	verifier.AssertNumberOfCalls(t, "VerifyIDToken", 2)
}

func TestSessionService_LoginRejected(t *testing.T) {
	f := newFixture(t)
	verifier := &mockVerifier{}
	verifier.On("VerifyIDToken", mock.Anything, "forged").
		Return(nil, fmt.Errorf("bad signature: %w", models.ErrUnauthorized))
	svc := newSessionService(t, f, verifier)

	_, err := svc.Login(context.Background(), "forged")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestSessionService_ValidateAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := &mockVerifier{}
	verifier.On("VerifyIDToken", mock.Anything, "token").Return(&Identity{UID: "uid-1"}, nil)
	svc := newSessionService(t, f, verifier)

	session, err := svc.Login(ctx, "token")
	require.NoError(t, err)

	userID, err := svc.ValidateJWT(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", userID)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = svc.ValidateJWT(ctx, session.Token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_SessionExpiresInRedis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := &mockVerifier{}
	verifier.On("VerifyIDToken", mock.Anything, "token").Return(&Identity{UID: "uid-1"}, nil)
	svc := NewSessionService(verifier, f.userRepo, f.sessionRepo, testSecret, 24*time.Hour)

	session, err := svc.Login(ctx, "token")
	require.NoError(t, err)

	f.mr.FastForward(25 * time.Hour)
	_, err = svc.ValidateJWT(ctx, session.Token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_ValidateJWTRejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := newSessionService(t, f, &mockVerifier{})

	expired, err := svc.GenerateJWT("uid-1", "sid", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "uid-1",
		"sid":     "sid",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	foreignToken, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	noSession, err := svc.GenerateJWT("uid-1", "unknown-sid", time.Now().Add(time.Hour))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-jwt",
		"expired":    expired,
		"foreign":    foreignToken,
		"no session": noSession,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateJWT(ctx, token)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}
