package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp/model"
)

func TestFollowSelfRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	_, appErr := env.follow.Follow(context.Background(), alice, alice.ID)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)

	appErr = env.follow.Unfollow(context.Background(), alice, alice.ID)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)
}

func TestFollowUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	_, appErr := env.follow.Follow(context.Background(), alice, "no-such-id")
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestFollowPublicAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	state, appErr := env.follow.Follow(ctx, alice, bob.ID)
	require.Nil(t, appErr)
	assert.Equal(t, FollowStateFollowing, state)

	following, err := env.follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// Following twice reports the existing state instead of failing.
	state, appErr = env.follow.Follow(ctx, alice, bob.ID)
	require.Nil(t, appErr)
	assert.Equal(t, FollowStateFollowing, state)

	require.Nil(t, env.follow.Unfollow(ctx, alice, bob.ID))
	following, err = env.follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowPrivateAccountCreatesRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	carol := env.createUser(t, "carol", true)

	state, appErr := env.follow.Follow(ctx, alice, carol.ID)
	require.Nil(t, appErr)
	assert.Equal(t, FollowStateRequested, state)

	// No edge exists while the request is pending.
	following, err := env.follows.IsFollowing(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// Requesting again while pending is a conflict.
	_, appErr = env.follow.Follow(ctx, alice, carol.ID)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)

	requests, appErr := env.follow.GetFollowRequests(ctx, carol)
	require.Nil(t, appErr)
	require.Len(t, requests, 1)
	assert.Equal(t, alice.ID, requests[0].SenderID)
}

func TestAcceptFollowRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	carol := env.createUser(t, "carol", true)

	_, appErr := env.follow.Follow(ctx, alice, carol.ID)
	require.Nil(t, appErr)

	requests, appErr := env.follow.GetFollowRequests(ctx, carol)
	require.Nil(t, appErr)
	require.Len(t, requests, 1)

	// Only the recipient may resolve the request.
	appErr = env.follow.AcceptFollowRequest(ctx, alice, requests[0].ID)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)

	require.Nil(t, env.follow.AcceptFollowRequest(ctx, carol, requests[0].ID))

	following, err := env.follows.IsFollowing(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The request record is gone.
	requests, appErr = env.follow.GetFollowRequests(ctx, carol)
	require.Nil(t, appErr)
	assert.Empty(t, requests)

	// Accepting it again is not found.
	appErr = env.follow.AcceptFollowRequest(ctx, carol, "no-such-request")
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestRejectFollowRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	carol := env.createUser(t, "carol", true)

	_, appErr := env.follow.Follow(ctx, alice, carol.ID)
	require.Nil(t, appErr)

	requests, appErr := env.follow.GetFollowRequests(ctx, carol)
	require.Nil(t, appErr)
	require.Len(t, requests, 1)

	require.Nil(t, env.follow.RejectFollowRequest(ctx, carol, requests[0].ID))

	following, err := env.follows.IsFollowing(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// A rejected sender may try again.
	state, appErr := env.follow.Follow(ctx, alice, carol.ID)
	require.Nil(t, appErr)
	assert.Equal(t, FollowStateRequested, state)
}

func TestSuggestionsRankedByMutuals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	b1 := env.createUser(t, "b1", false)
	b2 := env.createUser(t, "b2", false)
	popular := env.createUser(t, "popular", false)
	niche := env.createUser(t, "niche", false)
	hidden := env.createUser(t, "hidden", true)

	env.mustFollow(t, alice, b1)
	env.mustFollow(t, alice, b2)
	env.mustFollow(t, b1, popular)
	env.mustFollow(t, b2, popular)
	env.mustFollow(t, b1, niche)
	require.NoError(t, env.follows.SaveFollow(ctx, b1.ID, hidden.ID))
	require.NoError(t, env.follows.SaveFollow(ctx, b2.ID, hidden.ID))

	suggestions, appErr := env.follow.GetSuggestions(ctx, alice)
	require.Nil(t, appErr)
	require.Len(t, suggestions, 2)

	assert.Equal(t, popular.ID, suggestions[0].User.ID)
	assert.Equal(t, 2, suggestions[0].MutualCount)
	assert.Equal(t, niche.ID, suggestions[1].User.ID)
	assert.Equal(t, 1, suggestions[1].MutualCount)

	// Private accounts, already-followed accounts and the viewer never
	// appear, and emails are stripped.
	for _, s := range suggestions {
		assert.NotEqual(t, hidden.ID, s.User.ID)
		assert.NotEqual(t, alice.ID, s.User.ID)
		assert.Empty(t, s.User.Email)
		assert.Empty(t, s.User.PasswordHash)
	}
}

func TestSuggestionsCapped(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	for i := 0; i < SuggestionLimit+5; i++ {
		env.createUser(t, fmt.Sprintf("user%02d", i), false)
	}

	suggestions, appErr := env.follow.GetSuggestions(context.Background(), alice)
	require.Nil(t, appErr)
	assert.Len(t, suggestions, SuggestionLimit)
}

func TestSuggestionsSeededTiebreakIsReproducible(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	// A pure tie group: every candidate has zero mutuals.
	for i := 0; i < 10; i++ {
		env.createUser(t, fmt.Sprintf("user%02d", i), false)
	}

	order := func(seed uint64) []string {
		env.follow.WithSeedFunc(func() uint64 { return seed })
		suggestions, appErr := env.follow.GetSuggestions(context.Background(), alice)
		require.Nil(t, appErr)

		ids := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			ids = append(ids, s.User.ID)
		}
		return ids
	}

	assert.Equal(t, order(42), order(42))
	assert.Equal(t, order(7), order(7))
}

func TestGetProfileCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)
	carol := env.createUser(t, "carol", false)

	env.mustFollow(t, bob, alice)
	env.mustFollow(t, carol, alice)
	env.mustFollow(t, alice, bob)
	env.mustTweet(t, alice, "one")
	env.mustTweet(t, alice, "two")

	profile, appErr := env.follow.GetProfile(ctx, "alice", bob.ID)
	require.Nil(t, appErr)
	assert.Equal(t, 2, profile.FollowersCount)
	assert.Equal(t, 1, profile.FollowingCount)
	assert.Equal(t, 2, profile.TweetsCount)
	assert.True(t, profile.IsFollowing)
	assert.False(t, profile.RequestPending)

	// Someone else's profile comes back without the email.
	assert.Empty(t, profile.User.Email)

	own, appErr := env.follow.GetProfile(ctx, "alice", alice.ID)
	require.Nil(t, appErr)
	assert.NotEmpty(t, own.User.Email)
	assert.Empty(t, own.User.PasswordHash)
}

func TestProfileRequestPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	carol := env.createUser(t, "carol", true)

	_, appErr := env.follow.Follow(ctx, alice, carol.ID)
	require.Nil(t, appErr)

	profile, appErr := env.follow.GetProfile(ctx, "carol", alice.ID)
	require.Nil(t, appErr)
	assert.False(t, profile.IsFollowing)
	assert.True(t, profile.RequestPending)
}

func TestFollowerListsPrivacy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	carol := env.createUser(t, "carol", true)
	dave := env.createUser(t, "dave", false)

	require.NoError(t, env.follows.SaveFollow(ctx, dave.ID, carol.ID))

	_, appErr := env.follow.GetFollowers(ctx, carol.ID, alice.ID)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)

	followers, appErr := env.follow.GetFollowers(ctx, carol.ID, dave.ID)
	require.Nil(t, appErr)
	require.Len(t, followers, 1)
	assert.Equal(t, dave.ID, followers[0].ID)
	assert.Empty(t, followers[0].Email)
}

func TestFollowNotifiesTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	env.mustFollow(t, alice, bob)

	page, appErr := env.notification.GetNotifications(ctx, bob, 1, 10)
	require.Nil(t, appErr)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, model.NotificationFollow, page.Notifications[0].Type)
	assert.Equal(t, alice.ID, page.Notifications[0].ActorID)
}
