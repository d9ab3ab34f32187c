package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/events"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type MessageService interface {
	Create(ctx context.Context, content string, threadID uuid.UUID, role types.MessageRole) (*types.Message, error)
	FindAll(ctx context.Context) ([]*types.Message, error)
	// FindAllByThreadID is lenient: an unknown threadID yields an empty
	// slice, never an error. Messages come back oldest first.
	FindAllByThreadID(ctx context.Context, threadID uuid.UUID) ([]*types.Message, error)
	FindOne(ctx context.Context, id uuid.UUID) (*types.Message, error)
	Update(ctx context.Context, id uuid.UUID, content *string, role *types.MessageRole) (*types.Message, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type messageService struct {
	db          *gorm.DB
	log         *logger.Logger
	messageRepo repos.MessageRepo
	threadRepo  repos.ThreadRepo
	bus         events.Bus
}

func NewMessageService(db *gorm.DB, log *logger.Logger, messageRepo repos.MessageRepo, threadRepo repos.ThreadRepo, bus events.Bus) MessageService {
	return &messageService{
		db:          db,
		log:         log.With("service", "MessageService"),
		messageRepo: messageRepo,
		threadRepo:  threadRepo,
		bus:         bus,
	}
}

func (ms *messageService) Create(ctx context.Context, content string, threadID uuid.UUID, role types.MessageRole) (*types.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.ValidationField("content", "content cannot be empty")
	}
	if threadID == uuid.Nil {
		return nil, apperr.ValidationField("threadId", "threadId is required")
	}
	if !role.IsValid() {
		return nil, apperr.ValidationField("role", "invalid role, must be USER, ASSISTANT, or SYSTEM")
	}
	// Bad parent reference in the payload is a 400, not a 404.
	thread, err := ms.threadRepo.GetByID(ctx, nil, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ValidationField("threadId", "thread with ID "+threadID.String()+" not found")
		}
		return nil, apperr.Internal("failed to check thread existence", err)
	}
	msg, err := ms.messageRepo.Create(ctx, nil, &types.Message{
		Content:  content,
		ThreadID: threadID,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperr.ValidationField("threadId", "thread with ID "+threadID.String()+" not found")
		}
		return nil, apperr.Internal("failed to create message", err)
	}
	if ms.bus != nil {
		ms.bus.Publish(ctx, events.MessageCreated, events.MessageCreatedEvent{
			Message:  *msg,
			ThreadID: threadID,
			UserID:   thread.UserID,
		})
	}
	ms.log.Info("message created", "messageID", msg.ID, "threadID", threadID, "role", role)
	return msg, nil
}

func (ms *messageService) FindAll(ctx context.Context) ([]*types.Message, error) {
	msgs, err := ms.messageRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("failed to fetch messages", err)
	}
	return msgs, nil
}

func (ms *messageService) FindAllByThreadID(ctx context.Context, threadID uuid.UUID) ([]*types.Message, error) {
	msgs, err := ms.messageRepo.GetByThreadID(ctx, nil, threadID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch messages", err)
	}
	return msgs, nil
}

func (ms *messageService) FindOne(ctx context.Context, id uuid.UUID) (*types.Message, error) {
	msg, err := ms.messageRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Message", id)
		}
		return nil, apperr.Internal("failed to fetch message", err)
	}
	return msg, nil
}

func (ms *messageService) Update(ctx context.Context, id uuid.UUID, content *string, role *types.MessageRole) (*types.Message, error) {
	msg, err := ms.messageRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Message", id)
		}
		return nil, apperr.Internal("failed to fetch message", err)
	}
	if content != nil {
		if strings.TrimSpace(*content) == "" {
			return nil, apperr.ValidationField("content", "content cannot be empty")
		}
		msg.Content = *content
	}
	if role != nil {
		if !role.IsValid() {
			return nil, apperr.ValidationField("role", "invalid role, must be USER, ASSISTANT, or SYSTEM")
		}
		msg.Role = *role
	}
	updated, err := ms.messageRepo.Save(ctx, nil, msg)
	if err != nil {
		return nil, apperr.Internal("failed to update message", err)
	}
	return updated, nil
}

func (ms *messageService) Remove(ctx context.Context, id uuid.UUID) error {
	if err := ms.messageRepo.DeleteByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Message", id)
		}
		return apperr.Internal("failed to delete message", err)
	}
	ms.log.Info("message deleted", "messageID", id)
	return nil
}
