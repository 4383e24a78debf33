package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chirp/model"
	"chirp/realtime"
	"chirp/repository"
	"chirp/repository/sqlite"
	"chirp/service/circuit_breaker"
)

// testEnv wires the services against an in-memory database, an in-process
// broker and fakes for the external systems (redis, smtp).
type testEnv struct {
	store  *sqlite.Store
	cache  *fakeCache
	broker *memoryBroker
	mail   *fakeMailer

	users         repository.UserRepository
	tweets        repository.TweetRepository
	follows       repository.FollowRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository

	auth            *AuthService
	user            *UserService
	tweet           *TweetService
	follow          *FollowService
	message         *MessageService
	notification    *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	logger := zap.NewNop()

	env := &testEnv{
		store:  store,
		cache:  newFakeCache(),
		broker: newMemoryBroker(),
		mail:   &fakeMailer{},
	}

	env.users = sqlite.NewSQLiteUserRepository(store, tracer)
	env.tweets = sqlite.NewSQLiteTweetRepository(store, tracer)
	env.follows = sqlite.NewSQLiteFollowRepository(store, tracer)
	env.messages = sqlite.NewSQLiteMessageRepository(store, tracer)
	env.notifications = sqlite.NewSQLiteNotificationRepository(store, tracer)

	breaker := circuit_breaker.NewMailerCircuitBreaker(env.mail, tracer, logger)

	env.auth = NewAuthService(env.users, env.cache, breaker, tracer, logger, "test-secret", 1, "http://localhost:8000")
	env.user = NewUserService(env.users, tracer)
	env.tweet = NewTweetService(env.tweets, env.users, env.follows, env.notifications, env.cache, env.broker, tracer, logger)
	env.follow = NewFollowService(env.follows, env.users, env.notifications, env.broker, tracer, logger)
	env.message = NewMessageService(env.messages, env.users, env.notifications, env.broker, tracer, logger)
	env.notification = NewNotificationService(env.notifications, tracer)

	return env
}

// createUser inserts a verified account directly, bypassing the email loop.
func (env *testEnv) createUser(t *testing.T, username string, isPrivate bool) model.AuthUser {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsPrivate:    isPrivate,
		Verified:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, env.users.SaveUser(context.Background(), &user))

	return model.AuthUser{ID: user.ID, Username: user.Username, Exp: time.Now().Add(time.Hour)}
}

func (env *testEnv) mustFollow(t *testing.T, follower, target model.AuthUser) {
	t.Helper()

	state, appErr := env.follow.Follow(context.Background(), follower, target.ID)
	require.Nil(t, appErr)
	require.Equal(t, FollowStateFollowing, state)
}

func (env *testEnv) mustTweet(t *testing.T, author model.AuthUser, content string) *model.TweetDetail {
	t.Helper()

	detail, appErr := env.tweet.CreateTweet(context.Background(), author, CreateTweetRequest{Content: content})
	require.Nil(t, appErr)
	return detail
}

// fakeCache replaces redis in tests.
type fakeCache struct {
	mu     sync.Mutex
	images map[string][]byte
	tokens map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		images: make(map[string][]byte),
		tokens: make(map[string]string),
	}
}

func (c *fakeCache) PostImage(_ context.Context, imageID string, image []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[imageID] = image
	return nil
}

func (c *fakeCache) GetImage(_ context.Context, imageID string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	image, ok := c.images[imageID]
	if !ok {
		return nil, fmt.Errorf("image %s not found", imageID)
	}
	return image, nil
}

func (c *fakeCache) ImageExists(_ context.Context, imageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.images[imageID]
	return ok
}

func (c *fakeCache) PostToken(_ context.Context, token string, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = userID
	return nil
}

func (c *fakeCache) GetToken(_ context.Context, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	userID, ok := c.tokens[token]
	if !ok {
		return "", fmt.Errorf("token not found")
	}
	return userID, nil
}

func (c *fakeCache) anyToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token := range c.tokens {
		return token
	}
	return ""
}

func (c *fakeCache) DeleteToken(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, token)
	return nil
}

// memoryBroker records published events per channel.
type memoryBroker struct {
	mu     sync.Mutex
	events map[string][]realtime.Event
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{events: make(map[string][]realtime.Event)}
}

func (b *memoryBroker) Publish(_ context.Context, channel string, event realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *memoryBroker) Subscribe(string) (<-chan realtime.Event, func(), error) {
	ch := make(chan realtime.Event)
	return ch, func() { close(ch) }, nil
}

// published returns the event names delivered to a user channel, in order.
func (b *memoryBroker) published(userID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var names []string
	for _, event := range b.events[realtime.UserChannel(userID)] {
		names = append(names, event.Name)
	}
	return names
}

// fakeMailer records delivery attempts, optionally failing them.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
}

func (m *fakeMailer) SendVerification(_ context.Context, to string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, link)
	return nil
}

func (m *fakeMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1]
}
