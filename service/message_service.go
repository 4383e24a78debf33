package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chirp/app_errors"
	"chirp/model"
	"chirp/realtime"
	"chirp/repository"
)

type MessageService struct {
	messageRepository      repository.MessageRepository
	userRepository         repository.UserRepository
	notificationRepository repository.NotificationRepository
	broker                 realtime.Broker
	tracer                 trace.Tracer
	logger                 *zap.Logger
}

func NewMessageService(
	messageRepository repository.MessageRepository,
	userRepository repository.UserRepository,
	notificationRepository repository.NotificationRepository,
	broker realtime.Broker,
	tracer trace.Tracer,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepository:      messageRepository,
		userRepository:         userRepository,
		notificationRepository: notificationRepository,
		broker:                 broker,
		tracer:                 tracer,
		logger:                 logger,
	}
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func (s *MessageService) SendMessage(ctx context.Context, authUser model.AuthUser, recipientID string, req SendMessageRequest) (*model.Message, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "MessageService.SendMessage")
	defer span.End()

	if recipientID == authUser.ID {
		return nil, app_errors.InvalidOperation("cannot message yourself")
	}

	if _, err := s.userRepository.GetUser(serviceCtx, recipientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	message := model.Message{
		ID:          uuid.New().String(),
		SenderID:    authUser.ID,
		RecipientID: recipientID,
		Content:     req.Content,
		CreatedAt:   time.Now(),
	}

	if err := s.messageRepository.SaveMessage(serviceCtx, &message); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	notification := model.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		ActorID:     authUser.ID,
		Type:        model.NotificationMessage,
		TargetID:    message.ID,
		CreatedAt:   time.Now(),
	}
	if err := s.notificationRepository.SaveNotification(serviceCtx, &notification); err != nil {
		s.logger.Error("saving notification", zap.Error(err))
	}

	if event, err := realtime.NewEvent(realtime.EventReceiveMessage, message); err == nil {
		if err := s.broker.Publish(serviceCtx, realtime.UserChannel(recipientID), event); err != nil {
			s.logger.Warn("publishing receive_message", zap.Error(err))
		}
	}

	return &message, nil
}

func (s *MessageService) GetConversations(ctx context.Context, authUser model.AuthUser) ([]model.ConversationDTO, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "MessageService.GetConversations")
	defer span.End()

	conversations, err := s.messageRepository.GetConversations(serviceCtx, authUser.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	for i := range conversations {
		sanitizeUser(&conversations[i].Peer)
	}

	return conversations, nil
}

type ThreadPage struct {
	Messages      []model.Message `json:"messages"`
	TotalMessages int             `json:"totalMessages"`
	TotalPages    int             `json:"totalPages"`
}

// GetThread returns one page of the conversation with peer, newest first,
// and marks the peer's messages as read.
func (s *MessageService) GetThread(ctx context.Context, authUser model.AuthUser, peerID string, page, pageSize int) (*ThreadPage, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "MessageService.GetThread")
	defer span.End()

	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	messages, total, err := s.messageRepository.GetThread(serviceCtx, authUser.ID, peerID, pageSize, (page-1)*pageSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	if err := s.messageRepository.MarkThreadRead(serviceCtx, authUser.ID, peerID); err != nil {
		s.logger.Error("marking thread read", zap.Error(err))
	}

	return &ThreadPage{
		Messages:      messages,
		TotalMessages: total,
		TotalPages:    (total + pageSize - 1) / pageSize,
	}, nil
}
