package repository

import (
	"context"
)

// CacheRepository stores uploaded image bytes and short-lived email
// verification tokens.
type CacheRepository interface {
	PostImage(ctx context.Context, imageID string, image []byte) error
	GetImage(ctx context.Context, imageID string) ([]byte, error)
	ImageExists(ctx context.Context, imageID string) bool

	PostToken(ctx context.Context, token string, userID string) error
	GetToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}
