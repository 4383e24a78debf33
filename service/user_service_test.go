package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMeStripsPasswordHash(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", false)

	me, appErr := env.user.GetMe(context.Background(), alice)
	require.Nil(t, appErr)
	assert.Equal(t, "alice", me.Username)
	assert.Empty(t, me.PasswordHash)
	assert.NotEmpty(t, me.Email)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", false)

	updated, appErr := env.user.UpdateProfile(ctx, alice, UpdateProfileRequest{
		DisplayName: "Alice A.",
		Bio:         "gopher",
		IsPrivate:   true,
	})
	require.Nil(t, appErr)
	assert.Equal(t, "Alice A.", updated.DisplayName)
	assert.True(t, updated.IsPrivate)

	me, appErr := env.user.GetMe(ctx, alice)
	require.Nil(t, appErr)
	assert.Equal(t, "gopher", me.Bio)
	assert.True(t, me.IsPrivate)
}

func TestSearchUsersPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		env.createUser(t, fmt.Sprintf("gopher%02d", i), false)
	}
	env.createUser(t, "unrelated", false)

	page1, appErr := env.user.SearchUsers(ctx, "gopher", 1, 10)
	require.Nil(t, appErr)
	assert.Len(t, page1.Users, 10)
	assert.Equal(t, 12, page1.Total)
	assert.Equal(t, 2, page1.TotalPages)

	page2, appErr := env.user.SearchUsers(ctx, "gopher", 2, 10)
	require.Nil(t, appErr)
	assert.Len(t, page2.Users, 2)

	for _, u := range page1.Users {
		assert.Empty(t, u.Email)
		assert.Empty(t, u.PasswordHash)
	}
}
