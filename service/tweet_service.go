package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chirp/app_errors"
	"chirp/metrics"
	"chirp/model"
	"chirp/ranking"
	"chirp/realtime"
	"chirp/repository"
)

const maxImageBytes = 5 << 20

type TweetService struct {
	tweetRepository        repository.TweetRepository
	userRepository         repository.UserRepository
	followRepository       repository.FollowRepository
	notificationRepository repository.NotificationRepository
	cacheRepository        repository.CacheRepository
	broker                 realtime.Broker
	tracer                 trace.Tracer
	logger                 *zap.Logger
}

func NewTweetService(
	tweetRepository repository.TweetRepository,
	userRepository repository.UserRepository,
	followRepository repository.FollowRepository,
	notificationRepository repository.NotificationRepository,
	cacheRepository repository.CacheRepository,
	broker realtime.Broker,
	tracer trace.Tracer,
	logger *zap.Logger,
) *TweetService {
	return &TweetService{
		tweetRepository:        tweetRepository,
		userRepository:         userRepository,
		followRepository:       followRepository,
		notificationRepository: notificationRepository,
		cacheRepository:        cacheRepository,
		broker:                 broker,
		tracer:                 tracer,
		logger:                 logger,
	}
}

type CreateTweetRequest struct {
	Content string `json:"content" validate:"max=280"`
	Image   string `json:"image"`
}

func (s *TweetService) CreateTweet(ctx context.Context, authUser model.AuthUser, req CreateTweetRequest) (*model.TweetDetail, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.CreateTweet")
	defer span.End()

	if req.Content == "" && req.Image == "" {
		return nil, app_errors.InvalidOperation("tweet must have content or an image")
	}

	t := model.Tweet{
		ID:        uuid.New().String(),
		AuthorID:  authUser.ID,
		Content:   req.Content,
		Image:     req.Image,
		CreatedAt: time.Now(),
	}

	if err := s.tweetRepository.SaveTweet(serviceCtx, &t); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	detail := &model.TweetDetail{
		TweetDTO: model.TweetDTO{
			ID:             t.ID,
			AuthorID:       t.AuthorID,
			AuthorUsername: authUser.Username,
			Content:        t.Content,
			Image:          t.Image,
			CreatedAt:      t.CreatedAt,
		},
		Likes:    []model.Like{},
		Comments: []model.Comment{},
	}

	s.fanOutNewTweet(serviceCtx, authUser.ID, &detail.TweetDTO)

	return detail, nil
}

func (s *TweetService) Retweet(ctx context.Context, authUser model.AuthUser, parentID string) (*model.TweetDetail, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.Retweet")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, parentID, authUser.ID); appErr != nil {
		return nil, appErr
	}

	// A repost carries no independent content, only the parent reference.
	t := model.Tweet{
		ID:        uuid.New().String(),
		AuthorID:  authUser.ID,
		ParentID:  &parentID,
		CreatedAt: time.Now(),
	}

	if err := s.tweetRepository.SaveTweet(serviceCtx, &t); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	detail := &model.TweetDetail{
		TweetDTO: model.TweetDTO{
			ID:             t.ID,
			AuthorID:       t.AuthorID,
			AuthorUsername: authUser.Username,
			ParentID:       t.ParentID,
			CreatedAt:      t.CreatedAt,
		},
		Likes:    []model.Like{},
		Comments: []model.Comment{},
	}

	s.fanOutNewTweet(serviceCtx, authUser.ID, &detail.TweetDTO)
	s.publishTweetUpdated(serviceCtx, parentID)

	return detail, nil
}

// fanOutNewTweet publishes the tweet to the author and every follower.
// Delivery is best-effort; failures are logged, never surfaced.
func (s *TweetService) fanOutNewTweet(ctx context.Context, authorID string, tweet *model.TweetDTO) {
	event, err := realtime.NewEvent(realtime.EventNewTweet, tweet)
	if err != nil {
		s.logger.Error("encoding new_tweet event", zap.Error(err))
		return
	}

	recipients := []string{authorID}
	followerIDs, err := s.followRepository.GetFollowerIDs(ctx, authorID)
	if err != nil {
		s.logger.Error("loading followers for fan-out", zap.Error(err))
	} else {
		recipients = append(recipients, followerIDs...)
	}

	for _, id := range recipients {
		if err := s.broker.Publish(ctx, realtime.UserChannel(id), event); err != nil {
			s.logger.Warn("publishing new_tweet", zap.String("recipient", id), zap.Error(err))
		}
	}
}

func (s *TweetService) publishTweetUpdated(ctx context.Context, tweetID string) {
	tweet, err := s.tweetRepository.FindTweet(ctx, tweetID)
	if err != nil {
		return
	}

	event, err := realtime.NewEvent(realtime.EventTweetUpdated, map[string]string{"tweetId": tweetID})
	if err != nil {
		return
	}

	if err := s.broker.Publish(ctx, realtime.UserChannel(tweet.AuthorID), event); err != nil {
		s.logger.Warn("publishing tweet_updated", zap.Error(err))
	}
}

func (s *TweetService) DeleteTweet(ctx context.Context, authUser model.AuthUser, id string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.DeleteTweet")
	defer span.End()

	tweet, err := s.tweetRepository.FindTweet(serviceCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.NotFound("tweet not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	if tweet.AuthorID != authUser.ID {
		return app_errors.Forbidden("not your tweet")
	}

	if err := s.tweetRepository.DeleteTweet(serviceCtx, id); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	return nil
}

// GetFeed assembles the ranked, visibility-filtered, paginated feed.
// Private-account filtering happens in the candidate query, before scoring
// and pagination, so hidden tweets never count toward the totals.
func (s *TweetService) GetFeed(ctx context.Context, viewerID string, mode repository.FeedMode, page, pageSize int) (*model.FeedPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetFeed")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.FeedAssemblyDuration.Observe(time.Since(start).Seconds())
	}()

	// The following feed needs a viewer; anonymous callers get an empty page.
	if mode == repository.FeedModeFollowing && viewerID == "" {
		empty := ranking.Paginate(nil, page, pageSize)
		return &empty, nil
	}

	candidates, err := s.tweetRepository.GetFeedCandidates(serviceCtx, viewerID, mode)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	ranking.SortTweets(candidates, time.Now())
	feedPage := ranking.Paginate(candidates, page, pageSize)

	return &feedPage, nil
}

func (s *TweetService) GetTweet(ctx context.Context, id string, viewerID string) (*model.TweetDetail, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetTweet")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, id, viewerID); appErr != nil {
		return nil, appErr
	}

	dto, err := s.tweetRepository.GetTweet(serviceCtx, id, viewerID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	likes, err := s.tweetRepository.GetLikes(serviceCtx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	comments, err := s.tweetRepository.GetComments(serviceCtx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return &model.TweetDetail{TweetDTO: *dto, Likes: likes, Comments: comments}, nil
}

// checkTweetVisible resolves the tweet and enforces private-account
// visibility: the tweet exists for its author, the author's followers, and
// everyone if the account is public. Hidden tweets read as not found.
func (s *TweetService) checkTweetVisible(ctx context.Context, tweetID string, viewerID string) *app_errors.AppError {
	tweet, err := s.tweetRepository.FindTweet(ctx, tweetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.NotFound("tweet not found")
		}
		return app_errors.Internal()
	}

	if tweet.AuthorID == viewerID {
		return nil
	}

	author, err := s.userRepository.GetUser(ctx, tweet.AuthorID)
	if err != nil {
		return app_errors.Internal()
	}
	if !author.IsPrivate {
		return nil
	}

	if viewerID != "" {
		following, err := s.followRepository.IsFollowing(ctx, viewerID, tweet.AuthorID)
		if err != nil {
			return app_errors.Internal()
		}
		if following {
			return nil
		}
	}

	return app_errors.NotFound("tweet not found")
}

func (s *TweetService) GetProfileTweets(ctx context.Context, username string, viewerID string, page, pageSize int) (*model.FeedPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetProfileTweets")
	defer span.End()

	author, err := s.userRepository.GetUserByUsername(serviceCtx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	if author.IsPrivate && author.ID != viewerID {
		following := false
		if viewerID != "" {
			following, err = s.followRepository.IsFollowing(serviceCtx, viewerID, author.ID)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, app_errors.Internal()
			}
		}
		if !following {
			return nil, app_errors.Forbidden("this account is private")
		}
	}

	tweets, err := s.tweetRepository.GetProfileTweets(serviceCtx, author.ID, viewerID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	feedPage := ranking.Paginate(tweets, page, pageSize)
	return &feedPage, nil
}

func (s *TweetService) SearchTweets(ctx context.Context, query string, viewerID string, page, pageSize int) (*model.FeedPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.SearchTweets")
	defer span.End()

	tweets, err := s.tweetRepository.SearchTweets(serviceCtx, query, viewerID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	feedPage := ranking.Paginate(tweets, page, pageSize)
	return &feedPage, nil
}

func (s *TweetService) CreateLike(ctx context.Context, authUser model.AuthUser, tweetID string) (*model.Like, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.CreateLike")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, tweetID, authUser.ID); appErr != nil {
		return nil, appErr
	}

	like := model.Like{UserID: authUser.ID, SubjectID: tweetID, CreatedAt: time.Now()}

	err := s.tweetRepository.SaveLike(serviceCtx, &like)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	// A duplicate like is a benign no-op: the edge already exists, so skip
	// the notification and just report the current state.
	if err == nil {
		s.notifyTweetAuthor(serviceCtx, authUser.ID, tweetID, model.NotificationLike)
	}
	s.publishTweetUpdated(serviceCtx, tweetID)

	return &like, nil
}

func (s *TweetService) DeleteLike(ctx context.Context, authUser model.AuthUser, tweetID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.DeleteLike")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, tweetID, authUser.ID); appErr != nil {
		return appErr
	}

	if err := s.tweetRepository.DeleteLike(serviceCtx, authUser.ID, tweetID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	s.publishTweetUpdated(serviceCtx, tweetID)
	return nil
}

func (s *TweetService) GetLikesByTweet(ctx context.Context, tweetID string, viewerID string) ([]model.Like, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetLikesByTweet")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, tweetID, viewerID); appErr != nil {
		return nil, appErr
	}

	likes, err := s.tweetRepository.GetLikes(serviceCtx, tweetID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return likes, nil
}

func (s *TweetService) notifyTweetAuthor(ctx context.Context, actorID string, tweetID string, typ model.NotificationType) {
	tweet, err := s.tweetRepository.FindTweet(ctx, tweetID)
	if err != nil || tweet.AuthorID == actorID {
		return
	}

	notification := model.Notification{
		ID:          uuid.New().String(),
		RecipientID: tweet.AuthorID,
		ActorID:     actorID,
		Type:        typ,
		TargetID:    tweetID,
		CreatedAt:   time.Now(),
	}

	if err := s.notificationRepository.SaveNotification(ctx, &notification); err != nil {
		s.logger.Error("saving notification", zap.Error(err))
		return
	}

	if event, err := realtime.NewEvent(realtime.EventNotification, notification); err == nil {
		_ = s.broker.Publish(ctx, realtime.UserChannel(tweet.AuthorID), event)
	}
}

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}

func (s *TweetService) CreateComment(ctx context.Context, authUser model.AuthUser, tweetID string, req CreateCommentRequest) (*model.Comment, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.CreateComment")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, tweetID, authUser.ID); appErr != nil {
		return nil, appErr
	}

	comment := model.Comment{
		ID:        uuid.New().String(),
		TweetID:   tweetID,
		AuthorID:  authUser.ID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	if err := s.tweetRepository.SaveComment(serviceCtx, &comment); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	s.notifyTweetAuthor(serviceCtx, authUser.ID, tweetID, model.NotificationComment)
	s.publishTweetUpdated(serviceCtx, tweetID)

	return &comment, nil
}

func (s *TweetService) GetComments(ctx context.Context, tweetID string, viewerID string) ([]model.Comment, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetComments")
	defer span.End()

	if appErr := s.checkTweetVisible(serviceCtx, tweetID, viewerID); appErr != nil {
		return nil, appErr
	}

	comments, err := s.tweetRepository.GetComments(serviceCtx, tweetID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return comments, nil
}

func (s *TweetService) DeleteComment(ctx context.Context, authUser model.AuthUser, commentID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.DeleteComment")
	defer span.End()

	comment, err := s.tweetRepository.FindComment(serviceCtx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.NotFound("comment not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	if comment.AuthorID != authUser.ID {
		return app_errors.Forbidden("not your comment")
	}

	if err := s.tweetRepository.DeleteComment(serviceCtx, commentID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	s.publishTweetUpdated(serviceCtx, comment.TweetID)
	return nil
}

func (s *TweetService) LikeComment(ctx context.Context, authUser model.AuthUser, commentID string) (*model.Like, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.LikeComment")
	defer span.End()

	comment, err := s.tweetRepository.FindComment(serviceCtx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("comment not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	like := model.Like{UserID: authUser.ID, SubjectID: comment.ID, CreatedAt: time.Now()}

	err = s.tweetRepository.SaveLike(serviceCtx, &like)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return &like, nil
}

func (s *TweetService) UnlikeComment(ctx context.Context, authUser model.AuthUser, commentID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.UnlikeComment")
	defer span.End()

	if err := s.tweetRepository.DeleteLike(serviceCtx, authUser.ID, commentID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	return nil
}

// SaveImage stores an uploaded image and returns its id for use in a
// subsequent tweet create.
func (s *TweetService) SaveImage(ctx context.Context, req *http.Request) (string, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.SaveImage")
	defer span.End()

	if err := req.ParseMultipartForm(maxImageBytes); err != nil {
		return "", app_errors.InvalidOperation("invalid multipart form")
	}

	file, _, err := req.FormFile("image")
	if err != nil {
		return "", app_errors.InvalidOperation("missing image file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", app_errors.Internal()
	}

	imageID := uuid.New().String()
	if err := s.cacheRepository.PostImage(serviceCtx, imageID, data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", app_errors.Internal()
	}

	return imageID, nil
}

func (s *TweetService) GetImage(ctx context.Context, imageID string) ([]byte, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.GetImage")
	defer span.End()

	if !s.cacheRepository.ImageExists(serviceCtx, imageID) {
		return nil, app_errors.NotFound("image not found")
	}

	data, err := s.cacheRepository.GetImage(serviceCtx, imageID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return data, nil
}
