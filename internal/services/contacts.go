package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memories-backend/internal/models"
	"memories-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const phoneDigits = 10

// SettingsURL opens the app settings page on the device
const SettingsURL = "app-settings:"

// PermissionError is returned when the device did not grant contacts access
type PermissionError struct {
	State models.PermissionState
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("contacts permission %s", e.State)
}

func (e *PermissionError) Unwrap() error {
	return models.ErrPermissionDenied
}

// SMSComposer is the device SMS composer
type SMSComposer interface {
	IsAvailable(ctx context.Context) bool
	Send(ctx context.Context, recipients []string, body string) (models.SMSResult, error)
}

// ReportedComposer replays a composer outcome reported by the device
type ReportedComposer struct {
	Available bool
	Result    models.SMSResult
}

// IsAvailable returns the reported availability
func (c ReportedComposer) IsAvailable(ctx context.Context) bool {
	return c.Available
}

// Send returns the reported result
func (c ReportedComposer) Send(ctx context.Context, recipients []string, body string) (models.SMSResult, error) {
	if c.Result == "" {
		return models.SMSResultUnknown, nil
	}
	return c.Result, nil
}

// Invite is the SMS the device should compose for a contact
type Invite struct {
	PhoneNumber string `json:"phone_number"`
	Link        string `json:"link"`
	Message     string `json:"message"`
	UserID      string `json:"user_id,omitempty"`
}

// ContactService imports address book contacts and invites them
type ContactService struct {
	userRepo          *repository.UserRepository
	manualRepo        *repository.ManualContactRepository
	friendshipService *FriendshipService
	deepLinkService   *DeepLinkService
}

// NewContactService creates a new contact service
func NewContactService(
	userRepo *repository.UserRepository,
	manualRepo *repository.ManualContactRepository,
	friendshipService *FriendshipService,
	deepLinkService *DeepLinkService,
) *ContactService {
	return &ContactService{
		userRepo:          userRepo,
		manualRepo:        manualRepo,
		friendshipService: friendshipService,
		deepLinkService:   deepLinkService,
	}
}

// LoadContacts merges device contacts with the user's manual contacts and
// annotates each with its friendship status. Device entries win over manual
// entries with the same id.
func (s *ContactService) LoadContacts(ctx context.Context, userID string, permission models.PermissionState, device []models.Contact) ([]models.Contact, error) {
	if permission != models.PermissionGranted {
		if permission != models.PermissionDenied {
			permission = models.PermissionUndetermined
		}
		return nil, &PermissionError{State: permission}
	}

	manual, err := s.manualRepo.Get(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load manual contacts")
		manual = nil
	}
	for i := range manual {
		manual[i].Manual = true
	}

	contacts := repository.MergeContacts(device, manual)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i := range contacts {
		g.Go(func() error {
			s.annotate(gctx, userID, &contacts[i])
			return nil
		})
	}
	_ = g.Wait()

	return contacts, nil
}

// annotate sets the user and friendship status of a contact. Failures
// leave the contact at none.
func (s *ContactService) annotate(ctx context.Context, userID string, contact *models.Contact) {
	contact.FriendshipStatus = models.FriendshipStatusNone
	contact.UserID = ""

	phone := NormalizePhone(contact.PrimaryPhone())
	if phone == "" {
		return
	}

	user, err := s.userRepo.GetByPhoneNumber(ctx, phone)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Warn().Err(err).Str("contact_id", contact.ID).Msg("Failed to resolve contact")
		}
		return
	}

	contact.UserID = user.ID
	contact.FriendshipStatus = s.friendshipService.CheckStatus(ctx, userID, user.ID).Status
}

// AddManualContact stores a picked contact unless it is already stored or
// already shown. Returns the stored manual list.
func (s *ContactService) AddManualContact(ctx context.Context, userID string, picked models.Contact, displayed []models.Contact) ([]models.Contact, error) {
	if picked.ID == "" {
		return nil, fmt.Errorf("contact id is required: %w", models.ErrInvalidRequest)
	}

	for _, c := range displayed {
		if c.ID == picked.ID {
			manual, err := s.manualRepo.Get(ctx, userID)
			if err != nil {
				return nil, fmt.Errorf("failed to load manual contacts: %w", err)
			}
			return manual, nil
		}
	}

	picked.Manual = true
	picked.FriendshipStatus = ""
	picked.UserID = ""
	manual, err := s.manualRepo.Merge(ctx, userID, picked)
	if err != nil {
		return nil, fmt.Errorf("failed to add manual contact: %w", err)
	}

	log.Info().Str("user_id", userID).Str("contact_id", picked.ID).Msg("Manual contact added")
	return manual, nil
}

// PrepareInvite resolves the contact and builds the invitation SMS
func (s *ContactService) PrepareInvite(ctx context.Context, userID string, contact models.Contact) (*Invite, error) {
	phone := contact.PrimaryPhone()
	if phone == "" {
		return nil, fmt.Errorf("no phone number available: %w", models.ErrInvalidRequest)
	}

	target, err := s.resolveUser(ctx, phone)
	if err != nil {
		return nil, err
	}

	invite := &Invite{PhoneNumber: phone}
	if target != nil {
		invite.UserID = target.ID
	}
	invite.Link = s.deepLinkService.BuildInviteURL(userID, invite.UserID)
	invite.Message = InviteMessage(invite.Link)
	return invite, nil
}

// InviteContact sends the invitation through the composer. When the SMS was
// sent and the contact is a registered user a pending edge is created and
// the contact is marked pending. Returns whether the SMS was sent.
func (s *ContactService) InviteContact(ctx context.Context, contact *models.Contact, userID string, composer SMSComposer) (bool, error) {
	invite, err := s.PrepareInvite(ctx, userID, *contact)
	if err != nil {
		return false, err
	}

	if !composer.IsAvailable(ctx) {
		return false, fmt.Errorf("sms composer: %w", models.ErrUnsupportedCapability)
	}

	result, err := composer.Send(ctx, []string{invite.PhoneNumber}, invite.Message)
	if err != nil {
		return false, fmt.Errorf("failed to send invitation: %w", err)
	}
	if result != models.SMSResultSent {
		log.Info().Str("user_id", userID).Str("contact_id", contact.ID).Str("result", string(result)).Msg("Invitation not sent")
		return false, nil
	}

	if invite.UserID == "" {
		return true, nil
	}

	friendship, err := s.friendshipService.RequestFriendship(ctx, userID, invite.UserID)
	if err != nil {
		return true, fmt.Errorf("failed to create friend request: %w", err)
	}
	contact.UserID = invite.UserID
	contact.FriendshipStatus = friendship.Status
	return true, nil
}

func (s *ContactService) resolveUser(ctx context.Context, phone string) (*models.User, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return nil, nil
	}
	user, err := s.userRepo.GetByPhoneNumber(ctx, normalized)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contact: %w", err)
	}
	return user, nil
}

// InviteMessage is the SMS body carrying the invitation link
func InviteMessage(link string) string {
	return "Hey, I'd like to add you as a friend on Memories! Tap here to accept: " + link
}

// NormalizePhone keeps the digits of a phone number, dropping a country
// prefix beyond the last ten digits
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > phoneDigits {
		digits = digits[len(digits)-phoneDigits:]
	}
	return digits
}
