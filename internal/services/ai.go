package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/events"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

const DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and helpful responses."

const defaultContextTimeout = 2 * time.Second

type AiService interface {
	// GenerateResponse assembles the prompt from the message history plus
	// best-effort long-term-memory context and returns the model's reply.
	GenerateResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string) (string, error)
	// StreamResponse does the same but delivers deltas through onDelta as
	// they arrive, returning the full accumulated reply.
	StreamResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string, onDelta func(string) error) (string, error)
}

type AiConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	ContextTimeout time.Duration
}

type aiService struct {
	log            *logger.Logger
	client         *openai.Client
	bus            events.Bus
	model          string
	temperature    float32
	contextTimeout time.Duration
}

func NewAiService(log *logger.Logger, bus events.Bus, cfg AiConfig) (AiService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	contextTimeout := cfg.ContextTimeout
	if contextTimeout == 0 {
		contextTimeout = defaultContextTimeout
	}
	return &aiService{
		log:            log.With("service", "AiService"),
		client:         openai.NewClientWithConfig(clientCfg),
		bus:            bus,
		model:          model,
		temperature:    temperature,
		contextTimeout: contextTimeout,
	}, nil
}

// fetchContext races a CONTEXT_RETRIEVED answer against the configured
// timeout. Whichever resolves first wins; a timeout resolves to an empty
// context so generation never blocks on the memory bridge.
func (as *aiService) fetchContext(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID) string {
	if as.bus == nil || userID == uuid.Nil {
		return ""
	}
	answer := make(chan string, 1)
	unsubscribe := as.bus.Subscribe(events.ContextRetrieved, func(_ context.Context, event interface{}) {
		ev, ok := event.(events.ContextRetrievedEvent)
		if !ok || ev.ThreadID != threadID {
			return
		}
		select {
		case answer <- ev.Context:
		default:
		}
	})
	defer unsubscribe()

	as.bus.Publish(ctx, events.AIContextRequested, events.AIContextRequestedEvent{
		ThreadID: threadID,
		UserID:   userID,
		Messages: messages,
	})

	select {
	case c := <-answer:
		return c
	case <-time.After(as.contextTimeout):
		as.log.Warn("context retrieval timed out, continuing without context", "threadID", threadID)
		return ""
	case <-ctx.Done():
		return ""
	}
}

func (as *aiService) buildMessages(messages []types.Message, systemPrompt string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case types.RoleAssistant:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		}
	}
	return out
}

func (as *aiService) systemPromptWithContext(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string) string {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if memoryContext := as.fetchContext(ctx, messages, threadID, userID); memoryContext != "" {
		systemPrompt = systemPrompt + "\n\n" + memoryContext
	}
	return systemPrompt
}

func (as *aiService) GenerateResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string) (string, error) {
	prompt := as.systemPromptWithContext(ctx, messages, threadID, userID, systemPrompt)
	resp, err := as.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       as.model,
		Messages:    as.buildMessages(messages, prompt),
		Temperature: as.temperature,
	})
	if err != nil {
		return "", apperr.Generation("AI generation failed", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperr.Generation("empty response from AI model", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func (as *aiService) StreamResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string, onDelta func(string) error) (string, error) {
	prompt := as.systemPromptWithContext(ctx, messages, threadID, userID, systemPrompt)
	stream, err := as.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       as.model,
		Messages:    as.buildMessages(messages, prompt),
		Temperature: as.temperature,
	})
	if err != nil {
		return "", apperr.Generation("AI generation failed", err)
	}
	defer stream.Close()

	full := ""
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", apperr.Generation("AI stream receive failed", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		if onDelta != nil {
			if cbErr := onDelta(delta); cbErr != nil {
				return "", cbErr
			}
		}
	}
	if full == "" {
		return "", apperr.Generation("empty response from AI model", nil)
	}
	return full, nil
}
