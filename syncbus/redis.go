package syncbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Pub/Sub channel changes are published on.
const DefaultChannel = "fxconvert:storage"

// RedisBus carries changes over redis Pub/Sub, so contexts in different
// processes that share a redis-backed store see each other's writes.
// Handlers run on the bus's receive goroutine.
type RedisBus struct {
	lg      *zap.Logger
	client  *redis.Client
	channel string
	ps      *redis.PubSub
	done    chan struct{}

	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
	closed   bool
}

// NewRedis subscribes to channel and returns once redis has confirmed the
// subscription. The client is not owned by the bus.
func NewRedis(ctx context.Context, lg *zap.Logger, client *redis.Client, channel string) (*RedisBus, error) {
	if channel == "" {
		channel = DefaultChannel
	}

	ps := client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	b := &RedisBus{
		lg:       lg.With(zap.String("channel", channel)),
		client:   client,
		channel:  channel,
		ps:       ps,
		done:     make(chan struct{}),
		handlers: map[uint64]Handler{},
	}
	go b.receive(ps.Channel())

	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	b.handlers[id] = handler

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.handlers = map[uint64]Handler{}
	b.mu.Unlock()

	err := b.ps.Close()
	<-b.done
	return err
}

func (b *RedisBus) receive(msgs <-chan *redis.Message) {
	defer close(b.done)

	for msg := range msgs {
		var change Change
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			b.lg.Warn("dropping malformed change", zap.Error(err))
			continue
		}
		b.dispatch(change)
	}
}

func (b *RedisBus) dispatch(change Change) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, change)
	}
}

func (b *RedisBus) safeCall(h Handler, change Change) {
	defer func() {
		if r := recover(); r != nil {
			b.lg.Error("change handler panicked", zap.Any("panic", r), zap.String("key", change.Key))
		}
	}()
	h(change)
}
