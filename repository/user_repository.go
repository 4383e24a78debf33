package repository

import (
	"context"

	"chirp/model"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	MarkVerified(ctx context.Context, id string) error
	GetProfile(ctx context.Context, username string, viewerID string) (*model.ProfileDTO, error)
	SearchUsers(ctx context.Context, query string, limit, offset int) ([]model.User, int, error)
}
