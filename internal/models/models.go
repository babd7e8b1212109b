package models

import "time"

// Collection names used in the document store
const (
	CollectionUsers       = "users"
	CollectionFriendships = "friendships"
	CollectionImages      = "images"
)

// User represents an account created on first authentication. The push
// token stays server side.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	ProfilePicture string    `json:"profile_picture"`
	PushToken      *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserProfile is the part of a user other users may see
type UserProfile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
}

// Profile returns the publicly visible fields of the user
func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, ProfilePicture: u.ProfilePicture}
}

// FriendshipStatus is the state of the edge between two users
type FriendshipStatus string

const (
	FriendshipStatusNone     FriendshipStatus = "none"
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

// Friendship is the edge between a requester and the requested user.
// The document id is the ordered pair key, see FriendshipKey.
type Friendship struct {
	ID               string           `json:"id"`
	RequesterID      string           `json:"requester_id"`
	RequestedID      string           `json:"requested_id"`
	Status           FriendshipStatus `json:"status"`
	LastInteractedAt time.Time        `json:"last_interacted_at"`
}

// FriendshipKey is the document id of the edge between two users.
// The pair is ordered so both directions resolve to the same edge.
func FriendshipKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Peer returns the other side of the edge for userID
func (f *Friendship) Peer(userID string) string {
	if f.RequesterID == userID {
		return f.RequestedID
	}
	return f.RequesterID
}

// FriendshipCheck is the result of a status lookup between two users
type FriendshipCheck struct {
	AreFriends bool             `json:"are_friends"`
	Status     FriendshipStatus `json:"status"`
}

// ImageShare is one sender to one recipient delivery of an uploaded image
type ImageShare struct {
	ID          string     `json:"id"`
	ImageID     string     `json:"image_id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	IsViewed    bool       `json:"is_viewed"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ViewURL     string     `json:"view_url,omitempty"`
}

// DeliveryResult reports the outcome of a multi-recipient send
type DeliveryResult struct {
	ImageID   string   `json:"image_id"`
	Delivered []string `json:"delivered"`
	Failed    []string `json:"failed"`
}

// PhoneNumber is one number attached to a device contact
type PhoneNumber struct {
	Label  string `json:"label,omitempty"`
	Number string `json:"number"`
}

// Contact is an address book entry sent by the device or picked manually
type Contact struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	PhoneNumbers     []PhoneNumber    `json:"phone_numbers,omitempty"`
	ImageURI         string           `json:"image_uri,omitempty"`
	FriendshipStatus FriendshipStatus `json:"friendship_status,omitempty"`
	UserID           string           `json:"user_id,omitempty"`
	Manual           bool             `json:"manual,omitempty"`
}

// PrimaryPhone returns the first non-empty phone number
func (c *Contact) PrimaryPhone() string {
	for _, p := range c.PhoneNumbers {
		if p.Number != "" {
			return p.Number
		}
	}
	return ""
}

// PermissionState mirrors the device contacts permission
type PermissionState string

const (
	PermissionUndetermined PermissionState = "undetermined"
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
)

// SMSResult is what the native SMS composer reports after closing
type SMSResult string

const (
	SMSResultSent      SMSResult = "sent"
	SMSResultCancelled SMSResult = "cancelled"
	SMSResultUnknown   SMSResult = "unknown"
)

// DeepLinkDecision tells the client whether to show the friend request prompt
type DeepLinkDecision struct {
	ShowPrompt bool             `json:"show_prompt"`
	InviterID  string           `json:"inviter_id,omitempty"`
	FriendID   string           `json:"friend_id,omitempty"`
	Status     FriendshipStatus `json:"status"`
}

// Session is an authenticated login
type Session struct {
	ID        string    `json:"session_id"`
	Token     string    `json:"token"`
	User      *User     `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}
