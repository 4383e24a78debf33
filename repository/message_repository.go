package repository

import (
	"context"

	"chirp/model"
)

type MessageRepository interface {
	SaveMessage(ctx context.Context, message *model.Message) error
	GetConversations(ctx context.Context, userID string) ([]model.ConversationDTO, error)
	GetThread(ctx context.Context, userID, peerID string, limit, offset int) ([]model.Message, int, error)
	MarkThreadRead(ctx context.Context, userID, peerID string) error
}
