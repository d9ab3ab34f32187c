package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type EventType string

const (
	MessageCreated     EventType = "MESSAGE_CREATED"
	AIContextRequested EventType = "AI_CONTEXT_REQUESTED"
	ContextRetrieved   EventType = "CONTEXT_RETRIEVED"
)

// MessageCreatedEvent mirrors a freshly persisted message to listeners.
type MessageCreatedEvent struct {
	Message  types.Message `json:"message"`
	ThreadID uuid.UUID     `json:"threadId"`
	UserID   uuid.UUID     `json:"userId"`
}

// AIContextRequestedEvent asks for long-term-memory context for a thread.
type AIContextRequestedEvent struct {
	ThreadID uuid.UUID       `json:"threadId"`
	UserID   uuid.UUID       `json:"userId"`
	Messages []types.Message `json:"messages"`
}

// ContextRetrievedEvent answers an AIContextRequestedEvent. Context may be
// empty when retrieval failed; consumers treat that as "no context".
type ContextRetrievedEvent struct {
	ThreadID uuid.UUID `json:"threadId"`
	Context  string    `json:"context"`
}

type Listener func(ctx context.Context, event interface{})

// Bus is the publish/subscribe contract between the CRUD layer, the
// conversation orchestrator and the external memory bridge. Publish is
// fire-and-forget; request/response flows are built by subscribing for the
// answer before publishing the request.
type Bus interface {
	Publish(ctx context.Context, eventType EventType, event interface{})
	Subscribe(eventType EventType, fn Listener) (unsubscribe func())
}

type localBus struct {
	log    *logger.Logger
	mu     sync.RWMutex
	nextID int
	subs   map[EventType]map[int]Listener
}

// NewLocalBus returns the in-process Bus used by default.
func NewLocalBus(log *logger.Logger) Bus {
	return &localBus{
		log:  log.With("component", "EventBus"),
		subs: make(map[EventType]map[int]Listener),
	}
}

func (b *localBus) Subscribe(eventType EventType, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[int]Listener)
	}
	id := b.nextID
	b.nextID++
	b.subs[eventType][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[eventType], id)
	}
}

func (b *localBus) Publish(ctx context.Context, eventType EventType, event interface{}) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.subs[eventType]))
	for _, fn := range b.subs[eventType] {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()
	b.log.Debug("publishing event", "type", eventType, "listeners", len(listeners))
	// Listeners outlive the request that triggered the event: the memory
	// mirror keeps running after the HTTP handler returns, so cancellation
	// must not propagate. Values still do.
	ctx = context.WithoutCancel(ctx)
	for _, fn := range listeners {
		go func(fn Listener) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Warn("event listener panicked", "type", eventType, "panic", r)
				}
			}()
			fn(ctx, event)
		}(fn)
	}
}
