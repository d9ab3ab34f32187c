package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/smart-assistant/smart-assistant-backend/internal/events"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type stubMemory struct {
	mu         sync.Mutex
	added      []types.Message
	addCtxErrs []error
	context    string
	contextErr error
	addErr     error
}

func (s *stubMemory) EnsureUser(ctx context.Context, userID string) error { return nil }

func (s *stubMemory) EnsureThread(ctx context.Context, threadID, userID string) error { return nil }

func (s *stubMemory) AddMessages(ctx context.Context, threadID, userID string, msgs []types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCtxErrs = append(s.addCtxErrs, ctx.Err())
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, msgs...)
	return nil
}

func (s *stubMemory) GetContext(ctx context.Context, threadID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.context, s.contextErr
}

func TestMemoryBridgeMirrorsMessages(t *testing.T) {
	bus := events.NewLocalBus(logger.NewNop())
	memory := &stubMemory{}
	bridge := NewMemoryBridge(logger.NewNop(), bus, memory)
	bridge.Start()
	defer bridge.Stop()

	bus.Publish(context.Background(), events.MessageCreated, events.MessageCreatedEvent{
		Message:  types.Message{Content: "hi", Role: types.RoleUser},
		ThreadID: uuid.New(),
		UserID:   uuid.New(),
	})

	assert.Eventually(t, func() bool {
		memory.mu.Lock()
		defer memory.mu.Unlock()
		return len(memory.added) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// The mirror must finish even though the HTTP request that created the
// message is long gone by the time the bridge runs.
func TestMemoryBridgeMirrorsAfterRequestEnds(t *testing.T) {
	bus := events.NewLocalBus(logger.NewNop())
	memory := &stubMemory{}
	bridge := NewMemoryBridge(logger.NewNop(), bus, memory)
	bridge.Start()
	defer bridge.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, events.MessageCreated, events.MessageCreatedEvent{
		Message:  types.Message{Content: "hi", Role: types.RoleUser},
		ThreadID: uuid.New(),
		UserID:   uuid.New(),
	})
	cancel()

	assert.Eventually(t, func() bool {
		memory.mu.Lock()
		defer memory.mu.Unlock()
		return len(memory.added) == 1
	}, 2*time.Second, 10*time.Millisecond)

	memory.mu.Lock()
	defer memory.mu.Unlock()
	for _, err := range memory.addCtxErrs {
		assert.NoError(t, err, "bridge must not see the request's cancellation")
	}
}

func TestMemoryBridgeSkipsAnonymousMessages(t *testing.T) {
	bus := events.NewLocalBus(logger.NewNop())
	memory := &stubMemory{}
	bridge := NewMemoryBridge(logger.NewNop(), bus, memory)
	bridge.Start()
	defer bridge.Stop()

	bus.Publish(context.Background(), events.MessageCreated, events.MessageCreatedEvent{
		Message:  types.Message{Content: "hi", Role: types.RoleUser},
		ThreadID: uuid.New(),
		UserID:   uuid.Nil,
	})

	time.Sleep(100 * time.Millisecond)
	memory.mu.Lock()
	defer memory.mu.Unlock()
	assert.Empty(t, memory.added)
}

func TestMemoryBridgeAnswersContextRequests(t *testing.T) {
	bus := events.NewLocalBus(logger.NewNop())
	memory := &stubMemory{context: "long term facts"}
	bridge := NewMemoryBridge(logger.NewNop(), bus, memory)
	bridge.Start()
	defer bridge.Stop()

	threadID := uuid.New()
	answers := make(chan events.ContextRetrievedEvent, 1)
	unsubscribe := bus.Subscribe(events.ContextRetrieved, func(_ context.Context, event interface{}) {
		if ev, ok := event.(events.ContextRetrievedEvent); ok {
			answers <- ev
		}
	})
	defer unsubscribe()

	bus.Publish(context.Background(), events.AIContextRequested, events.AIContextRequestedEvent{
		ThreadID: threadID,
		UserID:   uuid.New(),
	})

	select {
	case ev := <-answers:
		assert.Equal(t, threadID, ev.ThreadID)
		assert.Equal(t, "long term facts", ev.Context)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a CONTEXT_RETRIEVED answer")
	}
}

func TestMemoryBridgeAnswersEmptyOnRetrievalFailure(t *testing.T) {
	bus := events.NewLocalBus(logger.NewNop())
	memory := &stubMemory{contextErr: errors.New("store down")}
	bridge := NewMemoryBridge(logger.NewNop(), bus, memory)
	bridge.Start()
	defer bridge.Stop()

	answers := make(chan events.ContextRetrievedEvent, 1)
	unsubscribe := bus.Subscribe(events.ContextRetrieved, func(_ context.Context, event interface{}) {
		if ev, ok := event.(events.ContextRetrievedEvent); ok {
			answers <- ev
		}
	})
	defer unsubscribe()

	bus.Publish(context.Background(), events.AIContextRequested, events.AIContextRequestedEvent{
		ThreadID: uuid.New(),
	})

	select {
	case ev := <-answers:
		assert.Empty(t, ev.Context)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a CONTEXT_RETRIEVED answer even on failure")
	}
}
