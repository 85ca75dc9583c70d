// Package syncbus carries storage-change notifications between contexts
// that share one durable store. It plays the role the browser "storage"
// event plays for tabs: a write in one context is announced to every other
// context, never to the writer itself.
package syncbus

import (
	"context"
)

// Change describes a write to the shared store. Value holds the full new
// value; Deleted is set when the key was removed.
type Change struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Origin  string `json:"origin"`
}

// Handler receives changes. Handlers must not block for long; buses deliver
// each subscription's changes in publish order.
type Handler func(Change)

// Observer is the capability a store needs to learn about foreign writes.
type Observer interface {
	Observe(handler Handler) (cancel func())
}

// Bus is a broker-backed fan-out of changes. Implementations must be safe
// for concurrent use.
type Bus interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(handler Handler) (cancel func())
	Close() error
}

type noopObserver struct{}

// Noop returns an observer that never fires, for hosts with no other
// contexts.
func Noop() Observer {
	return noopObserver{}
}

func (noopObserver) Observe(Handler) func() {
	return func() {}
}
