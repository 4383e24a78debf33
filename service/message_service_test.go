package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp/model"
	"chirp/realtime"
)

func TestSendMessageSelfRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	_, appErr := env.message.SendMessage(context.Background(), alice, alice.ID, SendMessageRequest{Content: "hi me"})
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)
}

func TestSendMessageUnknownRecipient(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	_, appErr := env.message.SendMessage(context.Background(), alice, "no-such-id", SendMessageRequest{Content: "hi"})
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestMessageDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	message, appErr := env.message.SendMessage(ctx, alice, bob.ID, SendMessageRequest{Content: "hello bob"})
	require.Nil(t, appErr)
	assert.Nil(t, message.ReadAt)

	// The recipient got a realtime event and a notification.
	assert.Contains(t, env.broker.published(bob.ID), realtime.EventReceiveMessage)

	page, appErr := env.notification.GetNotifications(ctx, bob, 1, 10)
	require.Nil(t, appErr)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, model.NotificationMessage, page.Notifications[0].Type)
}

func TestConversationsUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	for _, content := range []string{"one", "two", "three"} {
		_, appErr := env.message.SendMessage(ctx, alice, bob.ID, SendMessageRequest{Content: content})
		require.Nil(t, appErr)
	}

	conversations, appErr := env.message.GetConversations(ctx, bob)
	require.Nil(t, appErr)
	require.Len(t, conversations, 1)
	assert.Equal(t, alice.ID, conversations[0].Peer.ID)
	assert.Equal(t, 3, conversations[0].UnreadCount)
	assert.Equal(t, "three", conversations[0].LastMessage.Content)
	assert.Empty(t, conversations[0].Peer.Email)

	// Reading the thread marks the peer's messages as read.
	thread, appErr := env.message.GetThread(ctx, bob, alice.ID, 1, 10)
	require.Nil(t, appErr)
	assert.Len(t, thread.Messages, 3)
	assert.Equal(t, 3, thread.TotalMessages)

	conversations, appErr = env.message.GetConversations(ctx, bob)
	require.Nil(t, appErr)
	require.Len(t, conversations, 1)
	assert.Equal(t, 0, conversations[0].UnreadCount)

	// The sender's own unread count was never affected.
	conversations, appErr = env.message.GetConversations(ctx, alice)
	require.Nil(t, appErr)
	require.Len(t, conversations, 1)
	assert.Equal(t, 0, conversations[0].UnreadCount)
}

func TestThreadPaginationNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	for _, content := range []string{"first", "second", "third"} {
		_, appErr := env.message.SendMessage(ctx, alice, bob.ID, SendMessageRequest{Content: content})
		require.Nil(t, appErr)
	}

	thread, appErr := env.message.GetThread(ctx, bob, alice.ID, 1, 2)
	require.Nil(t, appErr)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "third", thread.Messages[0].Content)
	assert.Equal(t, "second", thread.Messages[1].Content)
	assert.Equal(t, 3, thread.TotalMessages)
	assert.Equal(t, 2, thread.TotalPages)

	thread, appErr = env.message.GetThread(ctx, bob, alice.ID, 2, 2)
	require.Nil(t, appErr)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "first", thread.Messages[0].Content)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)
	bob := env.createUser(t, "bob", false)

	env.mustFollow(t, alice, bob)
	_, appErr := env.message.SendMessage(ctx, alice, bob.ID, SendMessageRequest{Content: "hi"})
	require.Nil(t, appErr)

	page, appErr := env.notification.GetNotifications(ctx, bob, 1, 10)
	require.Nil(t, appErr)
	require.Len(t, page.Notifications, 2)
	for _, n := range page.Notifications {
		assert.False(t, n.Read)
	}

	require.Nil(t, env.notification.MarkAllRead(ctx, bob))

	page, appErr = env.notification.GetNotifications(ctx, bob, 1, 10)
	require.Nil(t, appErr)
	for _, n := range page.Notifications {
		assert.True(t, n.Read)
	}
}
