package repository

import (
	"context"

	"chirp/model"
)

type NotificationRepository interface {
	SaveNotification(ctx context.Context, notification *model.Notification) error
	GetNotifications(ctx context.Context, recipientID string, limit, offset int) ([]model.Notification, int, error)
	MarkAllRead(ctx context.Context, recipientID string) error
}
