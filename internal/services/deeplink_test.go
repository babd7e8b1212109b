package services

import (
	"context"
	"testing"

	"memories-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepLinkService_BuildInviteURL(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "memories://?friendId=b&userId=a", f.deepLinks.BuildInviteURL("a", "b"))

	custom := NewDeepLinkService(f.friendships, "moments")
	assert.Equal(t, "moments://?friendId=b+c&userId=a", custom.BuildInviteURL("a", "b c"))
}

func TestDeepLinkService_ReconcileWithoutParams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, raw := range []string{
		"memories://",
		"memories://?friendId=b",
		"memories://?userId=a",
		"memories://?friendId=&userId=a",
		"://bad url%",
	} {
		decision := f.deepLinks.Reconcile(ctx, raw)
		assert.False(t, decision.ShowPrompt, raw)
		assert.Equal(t, models.FriendshipStatusNone, decision.Status, raw)
	}
}

func TestDeepLinkService_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "a", "Alice", "")
	f.addUser(t, "b", "Bob", "")

	_, err := f.friendships.RequestFriendship(ctx, "a", "b")
	require.NoError(t, err)

	link := f.deepLinks.BuildInviteURL("a", "b")
	decision := f.deepLinks.Reconcile(ctx, link)
	assert.True(t, decision.ShowPrompt)
	assert.Equal(t, "a", decision.InviterID)
	assert.Equal(t, "b", decision.FriendID)
	assert.Equal(t, models.FriendshipStatusPending, decision.Status)

	friendship, err := f.deepLinks.Respond(ctx, "b", decision, true)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipStatusAccepted, friendship.Status)

	check := f.friendships.CheckStatus(ctx, "a", "b")
	assert.True(t, check.AreFriends)

	friends := f.friendships.ListFriends(ctx, "a")
	require.Len(t, friends, 1)
	assert.Equal(t, "b", friends[0].ID)

	again := f.deepLinks.Reconcile(ctx, link)
	assert.False(t, again.ShowPrompt)
	assert.Equal(t, models.FriendshipStatusAccepted, again.Status)
}

func TestDeepLinkService_ReconcileDoesNotCreateEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decision := f.deepLinks.Reconcile(ctx, "memories://?friendId=b&userId=a")
	assert.True(t, decision.ShowPrompt)
	assert.Equal(t, models.FriendshipStatusNone, decision.Status)

	_, err := f.friendshipRepo.FindBetween(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeepLinkService_RespondDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.friendships.RequestFriendship(ctx, "a", "b")
	require.NoError(t, err)
	decision := f.deepLinks.Reconcile(ctx, f.deepLinks.BuildInviteURL("a", "b"))

	friendship, err := f.deepLinks.Respond(ctx, "b", decision, false)
	require.NoError(t, err)
	assert.Nil(t, friendship)
	assert.Equal(t, models.FriendshipStatusPending, f.friendships.CheckStatus(ctx, "a", "b").Status)
}

func TestDeepLinkService_RespondValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.deepLinks.Respond(ctx, "b", models.DeepLinkDecision{}, true)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)

	decision := models.DeepLinkDecision{InviterID: "a", FriendID: "b"}
	_, err = f.deepLinks.Respond(ctx, "c", decision, true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.deepLinks.Respond(ctx, "b", decision, true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeepLinkService_RespondByRequesterIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "a", "Alice", "")
	f.addUser(t, "b", "Bob", "")

	// b asked a, then opens a link that names b as the invited friend
	_, err := f.friendships.RequestFriendship(ctx, "b", "a")
	require.NoError(t, err)

	_, err = f.deepLinks.Respond(ctx, "b", models.DeepLinkDecision{InviterID: "a", FriendID: "b"}, true)
	assert.ErrorIs(t, err, models.ErrForbidden)

	check := f.friendships.CheckStatus(ctx, "a", "b")
	assert.False(t, check.AreFriends)
	assert.Equal(t, models.FriendshipStatusPending, check.Status)
}
