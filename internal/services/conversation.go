package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

const titleMaxLen = 50

// FallbackAssistantContent is persisted when generation fails so the thread
// stays consistent even in degraded mode.
const FallbackAssistantContent = "I'm sorry, I wasn't able to generate a response just now. Please try again."

type SendMessageResult struct {
	UserMessage      *types.Message `json:"message"`
	AssistantMessage *types.Message `json:"assistantMessage"`
}

// ConversationService orchestrates a conversational turn: persist the user
// message, lazily title the thread, assemble history, generate a reply and
// persist it as the assistant message.
type ConversationService interface {
	SendMessage(ctx context.Context, userID, threadID uuid.UUID, content string) (*SendMessageResult, error)
	StreamMessage(ctx context.Context, userID, threadID uuid.UUID, content string, onDelta func(string) error) (*SendMessageResult, error)
}

type conversationService struct {
	db             *gorm.DB
	log            *logger.Logger
	threadRepo     repos.ThreadRepo
	messageRepo    repos.MessageRepo
	messageService MessageService
	ai             AiService
}

func NewConversationService(
	db *gorm.DB,
	log *logger.Logger,
	threadRepo repos.ThreadRepo,
	messageRepo repos.MessageRepo,
	messageService MessageService,
	ai AiService,
) ConversationService {
	return &conversationService{
		db:             db,
		log:            log.With("service", "ConversationService"),
		threadRepo:     threadRepo,
		messageRepo:    messageRepo,
		messageService: messageService,
		ai:             ai,
	}
}

// DeriveTitle truncates the first message's content to the thread title:
// at most 50 characters, with an ellipsis when truncated.
func DeriveTitle(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	return string(runes)
}

func (cs *conversationService) SendMessage(ctx context.Context, userID, threadID uuid.UUID, content string) (*SendMessageResult, error) {
	return cs.sendMessage(ctx, userID, threadID, content, nil)
}

func (cs *conversationService) StreamMessage(ctx context.Context, userID, threadID uuid.UUID, content string, onDelta func(string) error) (*SendMessageResult, error) {
	return cs.sendMessage(ctx, userID, threadID, content, onDelta)
}

func (cs *conversationService) sendMessage(ctx context.Context, userID, threadID uuid.UUID, content string, onDelta func(string) error) (*SendMessageResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.ValidationField("content", "content cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, apperr.ValidationField("userId", "userId is required")
	}

	thread, err := cs.threadRepo.GetByID(ctx, nil, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Thread", threadID)
		}
		return nil, apperr.Internal("failed to fetch thread", err)
	}
	// Ownership failures look identical to missing threads so the endpoint
	// is not an existence oracle for other users' threads.
	if thread.UserID != userID {
		return nil, apperr.NotFound("Thread", threadID)
	}

	userMessage, err := cs.messageService.Create(ctx, content, threadID, types.RoleUser)
	if err != nil {
		return nil, err
	}

	if thread.Title == "" {
		thread.Title = DeriveTitle(content)
		if _, err := cs.threadRepo.Save(ctx, nil, thread); err != nil {
			cs.log.Warn("failed to persist derived thread title", "error", err, "threadID", threadID)
		}
	}

	history, err := cs.messageRepo.GetByThreadID(ctx, nil, threadID)
	if err != nil {
		return nil, apperr.Internal("failed to assemble message history", err)
	}
	messages := make([]types.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, *m)
	}

	assistantContent := cs.generate(ctx, messages, threadID, userID, onDelta)
	assistantMessage, err := cs.messageService.Create(ctx, assistantContent, threadID, types.RoleAssistant)
	if err != nil {
		// The user message is already committed; surface the reply problem
		// without touching it.
		return nil, err
	}

	return &SendMessageResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// generate never fails: a generation error degrades to the fallback reply.
func (cs *conversationService) generate(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, onDelta func(string) error) string {
	if cs.ai == nil {
		cs.log.Warn("no AI service configured, using fallback reply", "threadID", threadID)
		return FallbackAssistantContent
	}
	var (
		reply string
		err   error
	)
	if onDelta != nil {
		reply, err = cs.ai.StreamResponse(ctx, messages, threadID, userID, "", onDelta)
	} else {
		reply, err = cs.ai.GenerateResponse(ctx, messages, threadID, userID, "")
	}
	if err != nil {
		cs.log.Warn("AI generation failed, using fallback reply", "error", err, "threadID", threadID)
		return FallbackAssistantContent
	}
	return reply
}
