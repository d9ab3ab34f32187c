package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type fakeAi struct {
	reply string
	err   error
	// seen records the history handed to the last generation call.
	seen []types.Message
}

func (f *fakeAi) GenerateResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string) (string, error) {
	f.seen = messages
	return f.reply, f.err
}

func (f *fakeAi) StreamResponse(ctx context.Context, messages []types.Message, threadID, userID uuid.UUID, systemPrompt string, onDelta func(string) error) (string, error) {
	f.seen = messages
	if f.err != nil {
		return "", f.err
	}
	for _, r := range strings.Split(f.reply, " ") {
		if err := onDelta(r); err != nil {
			return "", err
		}
	}
	return f.reply, f.err
}

func newConversationEnv(t *testing.T, ai AiService) (*testEnv, ConversationService) {
	t.Helper()
	env := newTestEnv(t)
	messageService := NewMessageService(env.db, env.log, env.messageRepo, env.threadRepo, nil)
	svc := NewConversationService(env.db, env.log, env.threadRepo, env.messageRepo, messageService, ai)
	return env, svc
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short", DeriveTitle("short"))
	assert.Equal(t, "trimmed", DeriveTitle("  trimmed  "))

	long := strings.Repeat("a", 80)
	title := DeriveTitle(long)
	assert.Equal(t, strings.Repeat("a", 50)+"...", title)
	assert.LessOrEqual(t, len([]rune(title)), 53)

	exact := strings.Repeat("b", 50)
	assert.Equal(t, exact, DeriveTitle(exact))
}

func TestConversationSendMessage(t *testing.T) {
	ai := &fakeAi{reply: "hello human"}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()
	user, thread := seedThread(t, env)

	result, err := svc.SendMessage(ctx, user.ID, thread.ID, "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", result.UserMessage.Content)
	assert.Equal(t, types.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "hello human", result.AssistantMessage.Content)
	assert.Equal(t, types.RoleAssistant, result.AssistantMessage.Role)

	// Both messages are persisted in order.
	msgs, err := env.messageRepo.GetByThreadID(ctx, nil, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// The user message is part of the history handed to generation.
	require.NotEmpty(t, ai.seen)
	assert.Equal(t, "hi there", ai.seen[len(ai.seen)-1].Content)
}

func TestConversationLazyTitle(t *testing.T) {
	ai := &fakeAi{reply: "ok"}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()

	user, err := env.userRepo.Create(ctx, nil, &types.User{Email: "owner@example.com", Name: "Owner"})
	require.NoError(t, err)
	thread, err := env.threadRepo.Create(ctx, nil, &types.Thread{Title: "", UserID: user.ID})
	require.NoError(t, err)

	first := strings.Repeat("x", 60)
	_, err = svc.SendMessage(ctx, user.ID, thread.ID, first)
	require.NoError(t, err)

	reloaded, err := env.threadRepo.GetByID(ctx, nil, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 50)+"...", reloaded.Title)

	// A second message must not overwrite the title.
	_, err = svc.SendMessage(ctx, user.ID, thread.ID, "something else entirely")
	require.NoError(t, err)
	reloaded, err = env.threadRepo.GetByID(ctx, nil, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 50)+"...", reloaded.Title)
}

func TestConversationOwnership(t *testing.T) {
	ai := &fakeAi{reply: "ok"}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()
	_, thread := seedThread(t, env)

	stranger, err := env.userRepo.Create(ctx, nil, &types.User{Email: "stranger@example.com", Name: "Stranger"})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, stranger.ID, thread.ID, "let me in")
	require.Error(t, err)
	// Indistinguishable from a missing thread on purpose.
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.SendMessage(ctx, stranger.ID, uuid.New(), "hello?")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestConversationValidation(t *testing.T) {
	ai := &fakeAi{reply: "ok"}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()
	user, thread := seedThread(t, env)

	_, err := svc.SendMessage(ctx, user.ID, thread.ID, "   ")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.SendMessage(ctx, uuid.Nil, thread.ID, "hi")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestConversationFallbackOnGenerationFailure(t *testing.T) {
	ai := &fakeAi{err: errors.New("model unavailable")}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()
	user, thread := seedThread(t, env)

	result, err := svc.SendMessage(ctx, user.ID, thread.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, FallbackAssistantContent, result.AssistantMessage.Content)

	msgs, err := env.messageRepo.GetByThreadID(ctx, nil, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, FallbackAssistantContent, msgs[1].Content)
}

func TestConversationFallbackWithoutAiService(t *testing.T) {
	env, svc := newConversationEnv(t, nil)
	ctx := context.Background()
	user, thread := seedThread(t, env)

	result, err := svc.SendMessage(ctx, user.ID, thread.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, FallbackAssistantContent, result.AssistantMessage.Content)
}

func TestConversationStreamMessage(t *testing.T) {
	ai := &fakeAi{reply: "streamed reply here"}
	env, svc := newConversationEnv(t, ai)
	ctx := context.Background()
	user, thread := seedThread(t, env)

	var deltas []string
	result, err := svc.StreamMessage(ctx, user.ID, thread.ID, "hi", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed reply here", result.AssistantMessage.Content)
	assert.Equal(t, []string{"streamed", "reply", "here"}, deltas)
}
