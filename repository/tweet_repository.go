package repository

import (
	"context"

	"chirp/model"
)

// FeedMode selects the candidate set for feed assembly.
type FeedMode string

const (
	FeedModeAll       FeedMode = "all"
	FeedModeFollowing FeedMode = "following"
)

type TweetRepository interface {
	SaveTweet(ctx context.Context, tweet *model.Tweet) error
	FindTweet(ctx context.Context, id string) (*model.Tweet, error)
	GetTweet(ctx context.Context, id string, viewerID string) (*model.TweetDTO, error)
	DeleteTweet(ctx context.Context, id string) error

	// GetFeedCandidates returns every tweet visible to the viewer under the
	// given mode, with counters and the viewer's liked flag precomputed.
	// Visibility is applied here, before any scoring or pagination.
	GetFeedCandidates(ctx context.Context, viewerID string, mode FeedMode) ([]model.TweetDTO, error)
	GetProfileTweets(ctx context.Context, authorID string, viewerID string) ([]model.TweetDTO, error)
	SearchTweets(ctx context.Context, query string, viewerID string) ([]model.TweetDTO, error)

	SaveLike(ctx context.Context, like *model.Like) error
	DeleteLike(ctx context.Context, userID, subjectID string) error
	GetLikes(ctx context.Context, subjectID string) ([]model.Like, error)

	SaveComment(ctx context.Context, comment *model.Comment) error
	FindComment(ctx context.Context, id string) (*model.Comment, error)
	GetComments(ctx context.Context, tweetID string) ([]model.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}
