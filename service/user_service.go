package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/app_errors"
	"chirp/model"
	"chirp/repository"
)

type UserService struct {
	userRepository repository.UserRepository
	tracer         trace.Tracer
}

func NewUserService(userRepository repository.UserRepository, tracer trace.Tracer) *UserService {
	return &UserService{
		userRepository: userRepository,
		tracer:         tracer,
	}
}

func (s *UserService) GetMe(ctx context.Context, authUser model.AuthUser) (*model.User, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "UserService.GetMe")
	defer span.End()

	user, err := s.userRepository.GetUser(serviceCtx, authUser.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	user.PasswordHash = ""
	return user, nil
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName" validate:"max=50"`
	Bio         string `json:"bio" validate:"max=160"`
	Avatar      string `json:"avatar" validate:"max=200"`
	IsPrivate   bool   `json:"isPrivate"`
}

func (s *UserService) UpdateProfile(ctx context.Context, authUser model.AuthUser, req UpdateProfileRequest) (*model.User, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	user, err := s.userRepository.GetUser(serviceCtx, authUser.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	user.DisplayName = req.DisplayName
	user.Bio = req.Bio
	user.Avatar = req.Avatar
	user.IsPrivate = req.IsPrivate

	if err := s.userRepository.UpdateProfile(serviceCtx, user); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	user.PasswordHash = ""
	return user, nil
}

type UserSearchPage struct {
	Users      []model.User `json:"users"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
}

func (s *UserService) SearchUsers(ctx context.Context, query string, page, pageSize int) (*UserSearchPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "UserService.SearchUsers")
	defer span.End()

	if pageSize <= 0 {
		pageSize = 10
	}
	if page <= 0 {
		page = 1
	}

	users, total, err := s.userRepository.SearchUsers(serviceCtx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	for i := range users {
		sanitizeUser(&users[i])
	}

	return &UserSearchPage{
		Users:      users,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}
