package service

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/app_errors"
	"chirp/model"
	"chirp/repository"
)

type NotificationService struct {
	notificationRepository repository.NotificationRepository
	tracer                 trace.Tracer
}

func NewNotificationService(notificationRepository repository.NotificationRepository, tracer trace.Tracer) *NotificationService {
	return &NotificationService{
		notificationRepository: notificationRepository,
		tracer:                 tracer,
	}
}

type NotificationPage struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int                  `json:"total"`
	TotalPages    int                  `json:"totalPages"`
}

func (s *NotificationService) GetNotifications(ctx context.Context, authUser model.AuthUser, page, pageSize int) (*NotificationPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "NotificationService.GetNotifications")
	defer span.End()

	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	notifications, total, err := s.notificationRepository.GetNotifications(serviceCtx, authUser.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	return &NotificationPage{
		Notifications: notifications,
		Total:         total,
		TotalPages:    (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, authUser model.AuthUser) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "NotificationService.MarkAllRead")
	defer span.End()

	if err := s.notificationRepository.MarkAllRead(serviceCtx, authUser.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	return nil
}
