package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// DefaultSessionTTL is how long a login stays valid
const DefaultSessionTTL = 30 * 24 * time.Hour

// Identity is a verified identity provider account
type Identity struct {
	UID     string
	Name    string
	Email   string
	Picture string
}

// IdentityVerifier checks OAuth ID tokens issued by the identity provider
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
}

// FirebaseVerifier verifies Firebase ID tokens
type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier initializes the Firebase Admin SDK from a credentials file
func NewFirebaseVerifier(ctx context.Context, credentialsPath string) (*FirebaseVerifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// VerifyIDToken verifies the token and returns the account it belongs to
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w: %w", models.ErrUnauthorized, err)
	}

	identity := &Identity{UID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		identity.Name = name
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.Picture = picture
	}
	return identity, nil
}

// SessionService handles login sessions
type SessionService struct {
	verifier    IdentityVerifier
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	jwtSecret   string
	ttl         time.Duration
	now         func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	verifier IdentityVerifier,
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	jwtSecret string,
	ttl time.Duration,
) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		verifier:    verifier,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtSecret:   jwtSecret,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Login verifies the ID token, creates the user on first login and opens
// a new session
func (s *SessionService) Login(ctx context.Context, idToken string) (*models.Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("id token is required: %w", models.ErrInvalidRequest)
	}

	identity, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.ensureUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	expiresAt := s.now().Add(s.ttl)

	token, err := s.GenerateJWT(user.ID, sessionID, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(ctx, sessionID, user.ID, s.ttl); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("session_id", sessionID).Msg("User logged in")

	return &models.Session{
		ID:        sessionID,
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
	}, nil
}

// ensureUser returns the stored user, creating it on first login
func (s *SessionService) ensureUser(ctx context.Context, identity *Identity) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, identity.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		ID:             identity.UID,
		Name:           identity.Name,
		Email:          identity.Email,
		ProfilePicture: identity.Picture,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return s.userRepo.GetByID(ctx, identity.UID)
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("User created")
	return user, nil
}

// Logout ends the session the token belongs to
func (s *SessionService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	return s.sessionRepo.Delete(ctx, claims.SessionID)
}

// GenerateJWT generates a JWT token for a session
func (s *SessionService) GenerateJWT(userID, sessionID string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and its session and returns the user ID
func (s *SessionService) ValidateJWT(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}

	userID, err := s.sessionRepo.GetUserID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("session ended: %w", models.ErrUnauthorized)
		}
		return "", err
	}
	if userID != claims.UserID {
		return "", fmt.Errorf("session belongs to another user: %w", models.ErrUnauthorized)
	}

	return userID, nil
}

type sessionClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *SessionService) parse(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w: %w", models.ErrUnauthorized, err)
	}

	if !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("invalid token claims: %w", models.ErrUnauthorized)
	}

	return claims, nil
}
