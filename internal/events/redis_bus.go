package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
)

// envelope is the wire form of an event on the redis channel.
type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus fans events out over a redis channel so multiple backend instances
// share one bus. Local subscribers receive every published event, including
// the instance's own, via the subscriber goroutine.
type RedisBus struct {
	log        *logger.Logger
	client     *redis.Client
	channel    string
	local      Bus
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

func NewRedisBus(log *logger.Logger, address, password, channel string) (*RedisBus, error) {
	opt := &redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisBus{
		log:     log.With("component", "RedisBus"),
		client:  rdb,
		channel: channel,
		local:   NewLocalBus(log),
	}, nil
}

func (rb *RedisBus) StartSubscriber() error {
	ctx, cancel := context.WithCancel(context.Background())
	rb.cancelFunc = cancel

	pubsub := rb.client.Subscribe(ctx, rb.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}
	rb.log.Info("RedisBus subscribed successfully", "channel", rb.channel)

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				rb.log.Debug("Redis bus context done, stopping subscription goroutine")
				return
			case msg, ok := <-ch:
				if !ok {
					rb.log.Debug("PubSub channel closed, stopping subscription goroutine")
					return
				}
				eventType, event, err := decodeEnvelope(msg.Payload)
				if err != nil {
					rb.log.Warn("Failed to decode bus message", "error", err)
					continue
				}
				rb.local.Publish(context.Background(), eventType, event)
			}
		}
	}()
	return nil
}

func (rb *RedisBus) Subscribe(eventType EventType, fn Listener) func() {
	return rb.local.Subscribe(eventType, fn)
}

func (rb *RedisBus) Publish(ctx context.Context, eventType EventType, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		rb.log.Warn("failed to encode event for redis", "error", err, "type", eventType)
		return
	}
	raw, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		rb.log.Warn("failed to encode envelope for redis", "error", err, "type", eventType)
		return
	}
	if err := rb.client.Publish(ctx, rb.channel, string(raw)).Err(); err != nil {
		rb.log.Warn("failed to publish event to redis", "error", err, "type", eventType)
	}
}

func (rb *RedisBus) Stop() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.cancelFunc != nil {
		rb.cancelFunc()
		rb.cancelFunc = nil
	}
}

func decodeEnvelope(payload string) (EventType, interface{}, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	switch env.Type {
	case MessageCreated:
		var ev MessageCreatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", nil, err
		}
		return env.Type, ev, nil
	case AIContextRequested:
		var ev AIContextRequestedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", nil, err
		}
		return env.Type, ev, nil
	case ContextRetrieved:
		var ev ContextRetrievedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return "", nil, err
		}
		return env.Type, ev, nil
	default:
		return "", nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
