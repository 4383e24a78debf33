package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/trace"
)

// RedisCacheRepository keeps uploaded image bytes and email verification
// tokens. Tokens expire on their own; images live until evicted.
type RedisCacheRepository struct {
	tracer trace.Tracer
	cli    *redis.Client
}

const (
	imageKey = "images:%s"
	tokenKey = "verify:%s"

	tokenTTL = 24 * time.Hour
)

func NewRedisCacheRepository(addr string, tracer trace.Tracer) *RedisCacheRepository {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &RedisCacheRepository{
		cli:    client,
		tracer: tracer,
	}
}

func (r *RedisCacheRepository) PostImage(ctx context.Context, imageID string, image []byte) error {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.PostImage")
	defer span.End()

	return r.cli.Set(constructImageKey(imageID), image, 0).Err()
}

func (r *RedisCacheRepository) GetImage(ctx context.Context, imageID string) ([]byte, error) {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.GetImage")
	defer span.End()

	value, err := r.cli.Get(constructImageKey(imageID)).Bytes()
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (r *RedisCacheRepository) ImageExists(ctx context.Context, imageID string) bool {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.ImageExists")
	defer span.End()

	cnt, err := r.cli.Exists(constructImageKey(imageID)).Result()
	if err != nil {
		return false
	}
	return cnt == 1
}

func (r *RedisCacheRepository) PostToken(ctx context.Context, token string, userID string) error {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.PostToken")
	defer span.End()

	return r.cli.Set(constructTokenKey(token), userID, tokenTTL).Err()
}

func (r *RedisCacheRepository) GetToken(ctx context.Context, token string) (string, error) {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.GetToken")
	defer span.End()

	value, err := r.cli.Get(constructTokenKey(token)).Bytes()
	if err != nil {
		return "", err
	}

	return string(value), nil
}

func (r *RedisCacheRepository) DeleteToken(ctx context.Context, token string) error {
	_, span := r.tracer.Start(ctx, "RedisCacheRepository.DeleteToken")
	defer span.End()

	return r.cli.Del(constructTokenKey(token)).Err()
}

func constructImageKey(id string) string {
	return fmt.Sprintf(imageKey, id)
}

func constructTokenKey(token string) string {
	return fmt.Sprintf(tokenKey, token)
}
