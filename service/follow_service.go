package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chirp/app_errors"
	"chirp/model"
	"chirp/ranking"
	"chirp/realtime"
	"chirp/repository"
)

// SuggestionLimit caps the "who to follow" list.
const SuggestionLimit = 21

// suggestionFetchLimit oversamples candidates so jitter can reorder tie
// groups that straddle the cap.
const suggestionFetchLimit = 5 * SuggestionLimit

// FollowState reports what a follow attempt produced.
type FollowState string

const (
	FollowStateFollowing FollowState = "following"
	FollowStateRequested FollowState = "requested"
)

type FollowService struct {
	followRepository       repository.FollowRepository
	userRepository         repository.UserRepository
	notificationRepository repository.NotificationRepository
	broker                 realtime.Broker
	tracer                 trace.Tracer
	logger                 *zap.Logger

	// seedFunc supplies the suggestion tiebreak seed; tests inject a fixed
	// one.
	seedFunc func() uint64
}

func NewFollowService(
	followRepository repository.FollowRepository,
	userRepository repository.UserRepository,
	notificationRepository repository.NotificationRepository,
	broker realtime.Broker,
	tracer trace.Tracer,
	logger *zap.Logger,
) *FollowService {
	return &FollowService{
		followRepository:       followRepository,
		userRepository:         userRepository,
		notificationRepository: notificationRepository,
		broker:                 broker,
		tracer:                 tracer,
		logger:                 logger,
		seedFunc:               rand.Uint64,
	}
}

// WithSeedFunc overrides the suggestion tiebreak seed source.
func (s *FollowService) WithSeedFunc(f func() uint64) *FollowService {
	s.seedFunc = f
	return s
}

// Follow creates the edge, or a pending request when the target account is
// private. Self-follow is rejected before any storage access.
func (s *FollowService) Follow(ctx context.Context, authUser model.AuthUser, targetID string) (FollowState, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.Follow")
	defer span.End()

	if targetID == authUser.ID {
		return "", app_errors.InvalidOperation("cannot follow yourself")
	}

	target, err := s.userRepository.GetUser(serviceCtx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return "", app_errors.Internal()
	}

	if target.IsPrivate {
		request := model.FollowRequest{
			ID:          uuid.New().String(),
			SenderID:    authUser.ID,
			RecipientID: targetID,
			CreatedAt:   time.Now(),
		}

		if err := s.followRepository.SaveFollowRequest(serviceCtx, &request); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return "", app_errors.Conflict("follow request already pending")
			}
			span.SetStatus(codes.Error, err.Error())
			return "", app_errors.Internal()
		}

		s.notify(serviceCtx, targetID, authUser.ID, model.NotificationFollowRequest, request.ID)
		return FollowStateRequested, nil
	}

	err = s.followRepository.SaveFollow(serviceCtx, authUser.ID, targetID)
	if err != nil {
		// Losing a race to an identical insert means the edge exists;
		// treat it as already-following rather than an error.
		if errors.Is(err, repository.ErrAlreadyExists) {
			return FollowStateFollowing, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return "", app_errors.Internal()
	}

	s.notify(serviceCtx, targetID, authUser.ID, model.NotificationFollow, "")
	s.publishFollowerCount(serviceCtx, targetID)

	return FollowStateFollowing, nil
}

func (s *FollowService) Unfollow(ctx context.Context, authUser model.AuthUser, targetID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.Unfollow")
	defer span.End()

	if targetID == authUser.ID {
		return app_errors.InvalidOperation("cannot unfollow yourself")
	}

	if err := s.followRepository.DeleteFollow(serviceCtx, authUser.ID, targetID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	s.publishFollowerCount(serviceCtx, targetID)
	return nil
}

func (s *FollowService) publishFollowerCount(ctx context.Context, userID string) {
	count, err := s.followRepository.CountFollowers(ctx, userID)
	if err != nil {
		s.logger.Error("counting followers", zap.Error(err))
		return
	}

	event, err := realtime.NewEvent(realtime.EventUpdateFollowers, map[string]any{
		"userId":         userID,
		"followersCount": count,
	})
	if err != nil {
		return
	}

	if err := s.broker.Publish(ctx, realtime.UserChannel(userID), event); err != nil {
		s.logger.Warn("publishing update_followers", zap.Error(err))
	}
}

func (s *FollowService) notify(ctx context.Context, recipientID, actorID string, typ model.NotificationType, targetID string) {
	notification := model.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        typ,
		TargetID:    targetID,
		CreatedAt:   time.Now(),
	}

	if err := s.notificationRepository.SaveNotification(ctx, &notification); err != nil {
		s.logger.Error("saving notification", zap.Error(err))
		return
	}

	if event, err := realtime.NewEvent(realtime.EventNotification, notification); err == nil {
		_ = s.broker.Publish(ctx, realtime.UserChannel(recipientID), event)
	}
}

func (s *FollowService) GetFollowRequests(ctx context.Context, authUser model.AuthUser) ([]model.FollowRequest, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.GetFollowRequests")
	defer span.End()

	requests, err := s.followRepository.GetFollowRequests(serviceCtx, authUser.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return requests, nil
}

// AcceptFollowRequest collapses the pending request into a follow edge.
// Only the recipient may resolve a request; the record is deleted either
// way, no history is kept.
func (s *FollowService) AcceptFollowRequest(ctx context.Context, authUser model.AuthUser, requestID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.AcceptFollowRequest")
	defer span.End()

	request, appErr := s.findOwnRequest(serviceCtx, authUser, requestID)
	if appErr != nil {
		return appErr
	}

	if err := s.followRepository.AcceptFollowRequest(serviceCtx, request); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	s.notify(serviceCtx, request.SenderID, authUser.ID, model.NotificationFollow, "")
	s.publishFollowerCount(serviceCtx, authUser.ID)

	return nil
}

func (s *FollowService) RejectFollowRequest(ctx context.Context, authUser model.AuthUser, requestID string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.RejectFollowRequest")
	defer span.End()

	request, appErr := s.findOwnRequest(serviceCtx, authUser, requestID)
	if appErr != nil {
		return appErr
	}

	if err := s.followRepository.DeleteFollowRequest(serviceCtx, request.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	return nil
}

func (s *FollowService) findOwnRequest(ctx context.Context, authUser model.AuthUser, requestID string) (*model.FollowRequest, *app_errors.AppError) {
	request, err := s.followRepository.FindFollowRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("follow request not found")
		}
		return nil, app_errors.Internal()
	}

	if request.RecipientID != authUser.ID {
		return nil, app_errors.Forbidden("not your follow request")
	}

	return request, nil
}

// GetSuggestions ranks "who to follow" candidates by mutual count, with a
// seeded jitter among ties so the order varies per request but stays
// reproducible under a fixed seed.
func (s *FollowService) GetSuggestions(ctx context.Context, authUser model.AuthUser) ([]model.SuggestionDTO, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.GetSuggestions")
	defer span.End()

	suggestions, err := s.followRepository.GetSuggestions(serviceCtx, authUser.ID, suggestionFetchLimit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	ranking.SortSuggestions(suggestions, s.seedFunc())

	if len(suggestions) > SuggestionLimit {
		suggestions = suggestions[:SuggestionLimit]
	}

	for i := range suggestions {
		sanitizeUser(&suggestions[i].User)
	}

	return suggestions, nil
}

func (s *FollowService) GetProfile(ctx context.Context, username string, viewerID string) (*model.ProfileDTO, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "FollowService.GetProfile")
	defer span.End()

	profile, err := s.userRepository.GetProfile(serviceCtx, username, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	if profile.User.ID != viewerID {
		sanitizeUser(&profile.User)
	}
	profile.User.PasswordHash = ""

	return profile, nil
}

func (s *FollowService) GetFollowers(ctx context.Context, userID string, viewerID string) ([]model.User, *app_errors.AppError) {
	return s.listEdgeUsers(ctx, "FollowService.GetFollowers", userID, viewerID, s.followRepository.GetFollowers)
}

func (s *FollowService) GetFollowing(ctx context.Context, userID string, viewerID string) ([]model.User, *app_errors.AppError) {
	return s.listEdgeUsers(ctx, "FollowService.GetFollowing", userID, viewerID, s.followRepository.GetFollowing)
}

// listEdgeUsers guards follower/following lists with the same privacy rule
// as profile tweets.
func (s *FollowService) listEdgeUsers(
	ctx context.Context,
	spanName string,
	userID string,
	viewerID string,
	load func(context.Context, string) ([]model.User, error),
) ([]model.User, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	user, err := s.userRepository.GetUser(serviceCtx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	if user.IsPrivate && user.ID != viewerID {
		following := false
		if viewerID != "" {
			following, err = s.followRepository.IsFollowing(serviceCtx, viewerID, user.ID)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, app_errors.Internal()
			}
		}
		if !following {
			return nil, app_errors.Forbidden("this account is private")
		}
	}

	users, err := load(serviceCtx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	for i := range users {
		sanitizeUser(&users[i])
	}

	return users, nil
}

// sanitizeUser strips fields other users should not see.
func sanitizeUser(u *model.User) {
	u.Email = ""
	u.PasswordHash = ""
}
