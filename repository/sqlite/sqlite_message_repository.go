package sqlite

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"chirp/model"
)

type SQLiteMessageRepository struct {
	tracer trace.Tracer
	store  *Store
}

func NewSQLiteMessageRepository(store *Store, tracer trace.Tracer) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{
		tracer: tracer,
		store:  store,
	}
}

func (r *SQLiteMessageRepository) SaveMessage(ctx context.Context, message *model.Message) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteMessageRepository.SaveMessage")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"INSERT INTO messages (id, sender_id, recipient_id, content, created_at, read_at) VALUES (?, ?, ?, ?, ?, NULL)",
		message.ID, message.SenderID, message.RecipientID, message.Content, encodeTime(message.CreatedAt))

	return err
}

// GetConversations returns one summary per peer the user has exchanged
// messages with, newest thread first.
func (r *SQLiteMessageRepository) GetConversations(ctx context.Context, userID string) ([]model.ConversationDTO, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteMessageRepository.GetConversations")
	defer span.End()

	rows, err := r.store.db.QueryContext(repoCtx, `
		SELECT `+qualifiedUserColumns+`,
			m.id, m.sender_id, m.recipient_id, m.content, m.created_at, m.read_at,
			(SELECT COUNT(*) FROM messages um
				WHERE um.sender_id = users.id AND um.recipient_id = ? AND um.read_at IS NULL) AS unread_count
		FROM users
		JOIN messages m ON m.id = (
			SELECT lm.id FROM messages lm
			WHERE (lm.sender_id = ? AND lm.recipient_id = users.id)
				OR (lm.sender_id = users.id AND lm.recipient_id = ?)
			ORDER BY lm.created_at DESC, lm.id DESC
			LIMIT 1
		)
		WHERE users.id <> ?
		ORDER BY m.created_at DESC`,
		userID, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []model.ConversationDTO{}
	for rows.Next() {
		var c model.ConversationDTO
		var userCreated, msgCreated int64
		var readAt *int64

		err := rows.Scan(&c.Peer.ID, &c.Peer.Username, &c.Peer.Email, &c.Peer.PasswordHash,
			&c.Peer.DisplayName, &c.Peer.Bio, &c.Peer.Avatar, &c.Peer.IsPrivate, &c.Peer.Verified, &userCreated,
			&c.LastMessage.ID, &c.LastMessage.SenderID, &c.LastMessage.RecipientID, &c.LastMessage.Content,
			&msgCreated, &readAt, &c.UnreadCount)
		if err != nil {
			return nil, err
		}

		c.Peer.CreatedAt = decodeTime(userCreated)
		c.LastMessage.CreatedAt = decodeTime(msgCreated)
		if readAt != nil {
			t := decodeTime(*readAt)
			c.LastMessage.ReadAt = &t
		}

		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

func (r *SQLiteMessageRepository) GetThread(ctx context.Context, userID, peerID string, limit, offset int) ([]model.Message, int, error) {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteMessageRepository.GetThread")
	defer span.End()

	var total int
	err := r.store.db.QueryRowContext(repoCtx, `
		SELECT COUNT(*) FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)`,
		userID, peerID, peerID, userID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.store.db.QueryContext(repoCtx, `
		SELECT id, sender_id, recipient_id, content, created_at, read_at FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, peerID, peerID, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		var createdAt int64
		var readAt *int64

		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &createdAt, &readAt); err != nil {
			return nil, 0, err
		}

		m.CreatedAt = decodeTime(createdAt)
		if readAt != nil {
			t := decodeTime(*readAt)
			m.ReadAt = &t
		}

		messages = append(messages, m)
	}

	return messages, total, rows.Err()
}

func (r *SQLiteMessageRepository) MarkThreadRead(ctx context.Context, userID, peerID string) error {
	repoCtx, span := r.tracer.Start(ctx, "SQLiteMessageRepository.MarkThreadRead")
	defer span.End()

	_, err := r.store.db.ExecContext(repoCtx,
		"UPDATE messages SET read_at = ? WHERE sender_id = ? AND recipient_id = ? AND read_at IS NULL",
		encodeTime(time.Now()), peerID, userID)

	return err
}
