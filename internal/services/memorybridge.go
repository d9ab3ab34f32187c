package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/smart-assistant/smart-assistant-backend/internal/events"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

// MemoryBridge decouples the CRUD layer from the external memory store.
// It mirrors created messages fire-and-forget and answers context requests
// over the bus. Every failure is logged and swallowed; the bridge must never
// block message creation or response generation.
type MemoryBridge struct {
	log    *logger.Logger
	bus    events.Bus
	memory MemoryService
	unsubs []func()
}

func NewMemoryBridge(log *logger.Logger, bus events.Bus, memory MemoryService) *MemoryBridge {
	return &MemoryBridge{
		log:    log.With("service", "MemoryBridge"),
		bus:    bus,
		memory: memory,
	}
}

func (mb *MemoryBridge) Start() {
	mb.unsubs = append(mb.unsubs,
		mb.bus.Subscribe(events.MessageCreated, mb.handleMessageCreated),
		mb.bus.Subscribe(events.AIContextRequested, mb.handleContextRequested),
	)
	mb.log.Info("memory bridge listening", "events", []events.EventType{events.MessageCreated, events.AIContextRequested})
}

func (mb *MemoryBridge) Stop() {
	for _, unsub := range mb.unsubs {
		unsub()
	}
	mb.unsubs = nil
}

func (mb *MemoryBridge) handleMessageCreated(ctx context.Context, event interface{}) {
	ev, ok := event.(events.MessageCreatedEvent)
	if !ok {
		return
	}
	if ev.UserID == uuid.Nil {
		mb.log.Debug("no userID on message created event, skipping mirror", "threadID", ev.ThreadID)
		return
	}
	err := mb.memory.AddMessages(ctx, ev.ThreadID.String(), ev.UserID.String(), []types.Message{ev.Message})
	if err != nil {
		mb.log.Warn("failed to mirror message into memory store", "error", err, "threadID", ev.ThreadID)
		return
	}
	mb.log.Debug("message mirrored into memory store", "threadID", ev.ThreadID, "messageID", ev.Message.ID)
}

func (mb *MemoryBridge) handleContextRequested(ctx context.Context, event interface{}) {
	ev, ok := event.(events.AIContextRequestedEvent)
	if !ok {
		return
	}
	memoryContext, err := mb.memory.GetContext(ctx, ev.ThreadID.String())
	if err != nil {
		mb.log.Warn("failed to retrieve context from memory store", "error", err, "threadID", ev.ThreadID)
		memoryContext = ""
	}
	mb.bus.Publish(ctx, events.ContextRetrieved, events.ContextRetrievedEvent{
		ThreadID: ev.ThreadID,
		Context:  memoryContext,
	})
}
