package repository

import (
	"context"

	"chirp/model"
)

type FollowRepository interface {
	// SaveFollow inserts the directed edge. A concurrent duplicate insert
	// fails the uniqueness constraint and surfaces as ErrAlreadyExists.
	SaveFollow(ctx context.Context, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	GetFollowers(ctx context.Context, userID string) ([]model.User, error)
	GetFollowing(ctx context.Context, userID string) ([]model.User, error)
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)

	SaveFollowRequest(ctx context.Context, request *model.FollowRequest) error
	FindFollowRequest(ctx context.Context, id string) (*model.FollowRequest, error)
	GetFollowRequests(ctx context.Context, recipientID string) ([]model.FollowRequest, error)
	// AcceptFollowRequest atomically creates the edge and deletes the request.
	AcceptFollowRequest(ctx context.Context, request *model.FollowRequest) error
	DeleteFollowRequest(ctx context.Context, id string) error

	// GetSuggestions returns non-private accounts the viewer does not follow
	// yet, each with its distinct two-hop mutual count.
	GetSuggestions(ctx context.Context, viewerID string, limit int) ([]model.SuggestionDTO, error)
}
