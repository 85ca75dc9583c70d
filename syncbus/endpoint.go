package syncbus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/util"
)

// Endpoint binds one context to a bus. It tags the context's writes with its
// origin and hides those writes from the context's own observers.
type Endpoint struct {
	lg     *zap.Logger
	bus    Bus
	origin string
}

// NewEndpoint returns an endpoint for origin. An empty origin gets a fresh
// id.
func NewEndpoint(lg *zap.Logger, bus Bus, origin string) *Endpoint {
	if origin == "" {
		origin = util.NewOrigin()
	}
	return &Endpoint{
		lg:     lg.With(zap.String("origin", origin)),
		bus:    bus,
		origin: origin,
	}
}

func (e *Endpoint) Origin() string {
	return e.origin
}

// Observe registers handler for changes written by other contexts.
func (e *Endpoint) Observe(handler Handler) func() {
	return e.bus.Subscribe(func(c Change) {
		if c.Origin == e.origin {
			return
		}
		handler(c)
	})
}

// Wrap returns a store that announces every successful write to the bus.
// The probe key is never announced.
func (e *Endpoint) Wrap(inner kvstore.Store) kvstore.Store {
	return &publishingStore{Store: inner, endpoint: e}
}

func (e *Endpoint) publish(ctx context.Context, change Change) {
	change.Origin = e.origin
	if err := e.bus.Publish(ctx, change); err != nil {
		e.lg.Warn("failed to publish change", zap.String("key", change.Key), zap.Error(err))
	}
}

type publishingStore struct {
	kvstore.Store
	endpoint *Endpoint
}

func (s *publishingStore) Set(ctx context.Context, key string, value string, expiry time.Duration) error {
	if err := s.Store.Set(ctx, key, value, expiry); err != nil {
		return err
	}
	if key != kvstore.ProbeKey {
		s.endpoint.publish(ctx, Change{Key: key, Value: value})
	}
	return nil
}

func (s *publishingStore) Delete(ctx context.Context, key string) error {
	if err := s.Store.Delete(ctx, key); err != nil {
		return err
	}
	if key != kvstore.ProbeKey {
		s.endpoint.publish(ctx, Change{Key: key, Deleted: true})
	}
	return nil
}
