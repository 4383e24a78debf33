package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"chirp/model"
	"chirp/repository"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func saveUser(t *testing.T, users *SQLiteUserRepository, username string) *model.User {
	t.Helper()

	user := &model.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     username + "@example.com",
		Verified:  true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, users.SaveUser(context.Background(), user))
	return user
}

func TestSaveUserDuplicate(t *testing.T) {
	store := openTestStore(t)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	users := NewSQLiteUserRepository(store, tracer)
	ctx := context.Background()

	saveUser(t, users, "alice")

	dup := &model.User{
		ID:        uuid.New().String(),
		Username:  "alice",
		Email:     "other@example.com",
		CreatedAt: time.Now(),
	}
	assert.ErrorIs(t, users.SaveUser(ctx, dup), repository.ErrAlreadyExists)

	dupEmail := &model.User{
		ID:        uuid.New().String(),
		Username:  "alice2",
		Email:     "alice@example.com",
		CreatedAt: time.Now(),
	}
	assert.ErrorIs(t, users.SaveUser(ctx, dupEmail), repository.ErrAlreadyExists)
}

func TestTimestampRoundtrip(t *testing.T) {
	store := openTestStore(t)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	users := NewSQLiteUserRepository(store, tracer)
	tweets := NewSQLiteTweetRepository(store, tracer)
	ctx := context.Background()

	author := saveUser(t, users, "alice")
	created := time.Date(2026, 2, 14, 10, 30, 0, 123456789, time.UTC)

	tweet := &model.Tweet{
		ID:        uuid.New().String(),
		AuthorID:  author.ID,
		Content:   "timestamped",
		CreatedAt: created,
	}
	require.NoError(t, tweets.SaveTweet(ctx, tweet))

	found, err := tweets.FindTweet(ctx, tweet.ID)
	require.NoError(t, err)
	assert.True(t, found.CreatedAt.Equal(created))
}

// Likes reference tweets or comments through an untyped subject id, so the
// foreign-key cascade cannot reach them; deletion cleans them up explicitly.
func TestDeleteTweetCleansUpDependents(t *testing.T) {
	store := openTestStore(t)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	users := NewSQLiteUserRepository(store, tracer)
	tweets := NewSQLiteTweetRepository(store, tracer)
	ctx := context.Background()

	author := saveUser(t, users, "alice")
	liker := saveUser(t, users, "bob")

	tweet := &model.Tweet{ID: uuid.New().String(), AuthorID: author.ID, Content: "gone soon", CreatedAt: time.Now()}
	require.NoError(t, tweets.SaveTweet(ctx, tweet))

	comment := &model.Comment{ID: uuid.New().String(), TweetID: tweet.ID, AuthorID: liker.ID, Content: "hi", CreatedAt: time.Now()}
	require.NoError(t, tweets.SaveComment(ctx, comment))

	require.NoError(t, tweets.SaveLike(ctx, &model.Like{UserID: liker.ID, SubjectID: tweet.ID, CreatedAt: time.Now()}))
	require.NoError(t, tweets.SaveLike(ctx, &model.Like{UserID: author.ID, SubjectID: comment.ID, CreatedAt: time.Now()}))

	require.NoError(t, tweets.DeleteTweet(ctx, tweet.ID))

	_, err := tweets.FindTweet(ctx, tweet.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = tweets.FindComment(ctx, comment.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var likeCount int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM likes").Scan(&likeCount))
	assert.Equal(t, 0, likeCount)
}

func TestDuplicateLikeIsUniqueViolation(t *testing.T) {
	store := openTestStore(t)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	users := NewSQLiteUserRepository(store, tracer)
	tweets := NewSQLiteTweetRepository(store, tracer)
	ctx := context.Background()

	author := saveUser(t, users, "alice")
	tweet := &model.Tweet{ID: uuid.New().String(), AuthorID: author.ID, Content: "likeable", CreatedAt: time.Now()}
	require.NoError(t, tweets.SaveTweet(ctx, tweet))

	like := &model.Like{UserID: author.ID, SubjectID: tweet.ID, CreatedAt: time.Now()}
	require.NoError(t, tweets.SaveLike(ctx, like))
	assert.ErrorIs(t, tweets.SaveLike(ctx, like), repository.ErrAlreadyExists)
}

func TestPendingRequestUniquePerPair(t *testing.T) {
	store := openTestStore(t)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	users := NewSQLiteUserRepository(store, tracer)
	follows := NewSQLiteFollowRepository(store, tracer)
	ctx := context.Background()

	sender := saveUser(t, users, "alice")
	recipient := saveUser(t, users, "carol")

	first := &model.FollowRequest{ID: uuid.New().String(), SenderID: sender.ID, RecipientID: recipient.ID, CreatedAt: time.Now()}
	require.NoError(t, follows.SaveFollowRequest(ctx, first))

	second := &model.FollowRequest{ID: uuid.New().String(), SenderID: sender.ID, RecipientID: recipient.ID, CreatedAt: time.Now()}
	assert.ErrorIs(t, follows.SaveFollowRequest(ctx, second), repository.ErrAlreadyExists)

	// Accept removes the pending row and creates the edge, so the pair can
	// not end up with both.
	require.NoError(t, follows.AcceptFollowRequest(ctx, first))

	following, err := follows.IsFollowing(ctx, sender.ID, recipient.ID)
	require.NoError(t, err)
	assert.True(t, following)

	assert.ErrorIs(t, follows.AcceptFollowRequest(ctx, first), repository.ErrNotFound)
}
