package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest(username string) RegisterRequest {
	return RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}
}

// verificationToken digs the opaque token out of the mailed link.
func verificationToken(t *testing.T, link string) string {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)

	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, appErr := env.auth.Register(ctx, registerRequest("alice"))
	require.Nil(t, appErr)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)
	assert.False(t, user.Verified)

	// Unverified accounts cannot log in.
	_, appErr = env.auth.Login(ctx, "alice", "password123")
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)

	link := env.mail.lastLink()
	require.NotEmpty(t, link)
	require.Nil(t, env.auth.Verify(ctx, verificationToken(t, link)))

	response, appErr := env.auth.Login(ctx, "alice", "password123")
	require.Nil(t, appErr)
	assert.Equal(t, user.ID, response.User.ID)
	assert.Empty(t, response.User.PasswordHash)

	token, err := jwt.Parse(response.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, "alice", claims["username"])
}

func TestVerifyTokenSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.auth.Register(ctx, registerRequest("alice"))
	require.Nil(t, appErr)

	token := verificationToken(t, env.mail.lastLink())
	require.Nil(t, env.auth.Verify(ctx, token))

	appErr = env.auth.Verify(ctx, token)
	require.NotNil(t, appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.auth.Register(ctx, registerRequest("alice"))
	require.Nil(t, appErr)

	_, appErr = env.auth.Register(ctx, registerRequest("alice"))
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mail.fail = true
	ctx := context.Background()

	_, appErr := env.auth.Register(ctx, registerRequest("alice"))
	require.Nil(t, appErr)

	// The token was stored before the send failed, so the account can still
	// be verified once the link reaches the user through a resend.
	token := env.cache.anyToken()
	require.NotEmpty(t, token)
	require.Nil(t, env.auth.Verify(ctx, token))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", false)

	_, appErr := env.auth.Login(context.Background(), "alice", "wrong")
	require.NotNil(t, appErr)
	assert.Equal(t, 401, appErr.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, appErr := env.auth.Login(context.Background(), "ghost", "password123")
	require.NotNil(t, appErr)
	assert.Equal(t, 401, appErr.Code)
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", false)

	appErr := env.auth.ResendVerification(context.Background(), "alice")
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)
}
