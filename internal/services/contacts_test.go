package services

import (
	"context"
	"errors"
	"testing"

	"memories-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComposer struct {
	available bool
	result    models.SMSResult
	err       error
	sent      []string
	body      string
}

func (c *fakeComposer) IsAvailable(ctx context.Context) bool { return c.available }

func (c *fakeComposer) Send(ctx context.Context, recipients []string, body string) (models.SMSResult, error) {
	c.sent = append(c.sent, recipients...)
	c.body = body
	return c.result, c.err
}

func contact(id, name, phone string) models.Contact {
	c := models.Contact{ID: id, Name: name}
	if phone != "" {
		c.PhoneNumbers = []models.PhoneNumber{{Label: "mobile", Number: phone}}
	}
	return c
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 123-4567", "5551234567"},
		{"+919876543210", "9876543210"},
		{"555-0100", "5550100"},
		{"", ""},
		{"n/a", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestContactService_LoadContactsPermission(t *testing.T) {
	f := newFixture(t)

	for _, state := range []models.PermissionState{models.PermissionDenied, models.PermissionUndetermined, ""} {
		_, err := f.contacts.LoadContacts(context.Background(), "a", state, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrPermissionDenied)

		var permErr *PermissionError
		require.True(t, errors.As(err, &permErr))
		if state == models.PermissionDenied {
			assert.Equal(t, models.PermissionDenied, permErr.State)
		} else {
			assert.Equal(t, models.PermissionUndetermined, permErr.State)
		}
	}
}

func TestContactService_LoadContactsMergesAndAnnotates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "a", "Alice", "5550000001")
	f.addUser(t, "b", "Bob", "5550000002")
	f.addUser(t, "c", "Carol", "5550000003")

	_, err := f.friendships.RequestFriendship(ctx, "a", "b")
	require.NoError(t, err)
	f.befriend(t, "c", "a")

	require.NoError(t, f.manualRepo.Put(ctx, "a", []models.Contact{
		contact("1", "Bob from manual", "+1 555 000 0002"),
		contact("4", "Carol", "+1 555 000 0003"),
	}))

	device := []models.Contact{
		contact("1", "Bob", "+1 (555) 000-0002"),
		contact("2", "Stranger", "+1 555 999 9999"),
		contact("3", "No phone", ""),
	}

	contacts, err := f.contacts.LoadContacts(ctx, "a", models.PermissionGranted, device)
	require.NoError(t, err)
	require.Len(t, contacts, 4)

	assert.Equal(t, "Bob", contacts[0].Name)
	assert.False(t, contacts[0].Manual)
	assert.Equal(t, "b", contacts[0].UserID)
	assert.Equal(t, models.FriendshipStatusPending, contacts[0].FriendshipStatus)

	assert.Equal(t, models.FriendshipStatusNone, contacts[1].FriendshipStatus)
	assert.Empty(t, contacts[1].UserID)
	assert.Equal(t, models.FriendshipStatusNone, contacts[2].FriendshipStatus)

	assert.Equal(t, "4", contacts[3].ID)
	assert.True(t, contacts[3].Manual)
	assert.Equal(t, models.FriendshipStatusAccepted, contacts[3].FriendshipStatus)
}

func TestContactService_LoadContactsSwallowsLookupFailures(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = func(string) error { return remoteDown("list") }

	contacts, err := f.contacts.LoadContacts(context.Background(), "a", models.PermissionGranted,
		[]models.Contact{contact("1", "Bob", "5550000002")})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, models.FriendshipStatusNone, contacts[0].FriendshipStatus)
}

func TestContactService_AddManualContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	picked := contact("9", "Dora", "5550000009")

	manual, err := f.contacts.AddManualContact(ctx, "a", picked, nil)
	require.NoError(t, err)
	require.Len(t, manual, 1)
	assert.True(t, manual[0].Manual)

	manual, err = f.contacts.AddManualContact(ctx, "a", picked, nil)
	require.NoError(t, err)
	assert.Len(t, manual, 1)

	displayed := []models.Contact{contact("7", "Eve", "")}
	manual, err = f.contacts.AddManualContact(ctx, "a", contact("7", "Eve", ""), displayed)
	require.NoError(t, err)
	assert.Len(t, manual, 1)

	_, err = f.contacts.AddManualContact(ctx, "a", models.Contact{Name: "no id"}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestContactService_InviteContactUnsupported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "b", "Bob", "5550000002")

	c := contact("1", "Bob", "+1 555 000 0002")
	composer := &fakeComposer{available: false}
	sent, err := f.contacts.InviteContact(ctx, &c, "a", composer)
	assert.False(t, sent)
	assert.ErrorIs(t, err, models.ErrUnsupportedCapability)
	assert.Empty(t, composer.sent)

	_, err = f.friendshipRepo.FindBetween(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestContactService_InviteContactCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "b", "Bob", "5550000002")

	c := contact("1", "Bob", "+1 555 000 0002")
	sent, err := f.contacts.InviteContact(ctx, &c, "a", &fakeComposer{available: true, result: models.SMSResultCancelled})
	require.NoError(t, err)
	assert.False(t, sent)

	_, err = f.friendshipRepo.FindBetween(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestContactService_InviteContactSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "b", "Bob", "5550000002")

	c := contact("1", "Bob", "+1 555 000 0002")
	composer := &fakeComposer{available: true, result: models.SMSResultSent}
	sent, err := f.contacts.InviteContact(ctx, &c, "a", composer)
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Equal(t, []string{"+1 555 000 0002"}, composer.sent)
	assert.Contains(t, composer.body, "memories://?friendId=b&userId=a")
	assert.Equal(t, models.FriendshipStatusPending, c.FriendshipStatus)
	assert.Equal(t, "b", c.UserID)

	edge, err := f.friendshipRepo.FindBetween(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "a", edge.RequesterID)
	assert.Equal(t, models.FriendshipStatusPending, edge.Status)
}

func TestContactService_InviteUnregisteredContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := contact("1", "Stranger", "+1 555 999 9999")
	sent, err := f.contacts.InviteContact(ctx, &c, "a", &fakeComposer{available: true, result: models.SMSResultSent})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Empty(t, c.UserID)

	edges, err := f.store.List(ctx, models.CollectionFriendships)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestContactService_PrepareInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "b", "Bob", "5550000002")

	invite, err := f.contacts.PrepareInvite(ctx, "a", contact("1", "Bob", "+1 555 000 0002"))
	require.NoError(t, err)
	assert.Equal(t, "b", invite.UserID)
	assert.Equal(t, "memories://?friendId=b&userId=a", invite.Link)
	assert.Equal(t, InviteMessage(invite.Link), invite.Message)

	_, err = f.contacts.PrepareInvite(ctx, "a", contact("2", "Nobody", ""))
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestReportedComposer(t *testing.T) {
	ctx := context.Background()

	result, err := ReportedComposer{Available: true}.Send(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.SMSResultUnknown, result)

	assert.False(t, ReportedComposer{}.IsAvailable(ctx))
}
