package sqlite

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"chirp/model"
)

type SQLiteNotificationRepository struct {
	tracer trace.Tracer
	store  *Store
}

func NewSQLiteNotificationRepository(store *Store, tracer trace.Tracer) *SQLiteNotificationRepository {
	return &SQLiteNotificationRepository{
		tracer: tracer,
		store:  store,
	}
}

func (r *SQLiteNotificationRepository) SaveNotification(ctx context.Context, notification *model.Notification) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteNotificationRepository.SaveNotification")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO notifications (id, recipient_id, actor_id, type, target_id, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		notification.ID, notification.RecipientID, notification.ActorID, string(notification.Type),
		notification.TargetID, notification.Read, encodeTime(notification.CreatedAt))

	return err
}

func (r *SQLiteNotificationRepository) GetNotifications(ctx context.Context, recipientID string, limit, offset int) ([]model.Notification, int, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteNotificationRepository.GetNotifications")
	defer span.End()

	var total int
	err := r.store.db.QueryRowContext(repoCtx,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ?", recipientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.store.db.QueryContext(repoCtx, `
		SELECT id, recipient_id, actor_id, type, target_id, read, created_at FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var typ string
		var createdAt int64

		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &typ, &n.TargetID, &n.Read, &createdAt); err != nil {
			return nil, 0, err
		}

		n.Type = model.NotificationType(typ)
		n.CreatedAt = decodeTime(createdAt)
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

func (r *SQLiteNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteNotificationRepository.MarkAllRead")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0", recipientID)

	return err
}
