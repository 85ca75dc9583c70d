package syncbus

import (
	"context"
	"errors"
	"sync"
)

var ErrBusClosed = errors.New("syncbus: bus closed")

// InmemBus fans changes out to subscribers in the same process. Each
// subscription owns a goroutine and an unbounded queue, so delivery is
// asynchronous and ordered per subscriber, and Publish never blocks on a
// slow handler.
type InmemBus struct {
	mu     sync.RWMutex
	subs   map[*inmemSubscription]struct{}
	closed bool
}

type inmemSubscription struct {
	handler Handler
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending []Change
}

func NewInmem() *InmemBus {
	return &InmemBus{subs: map[*inmemSubscription]struct{}{}}
}

func (b *InmemBus) Publish(ctx context.Context, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	subs := make([]*inmemSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.enqueue(change)
	}
	return nil
}

func (b *InmemBus) Subscribe(handler Handler) func() {
	sub := &inmemSubscription{
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	sub.wg.Add(1)
	go sub.run()

	return func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		sub.stop()
	}
}

func (b *InmemBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = map[*inmemSubscription]struct{}{}
	b.mu.Unlock()

	for sub := range subs {
		sub.stop()
	}
	return nil
}

func (s *inmemSubscription) enqueue(c Change) {
	s.mu.Lock()
	s.pending = append(s.pending, c)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *inmemSubscription) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, c := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(c)
		}
	}
}

// stop waits for an in-flight handler to return, so no call happens after
// the cancel func returns. Calling it from inside the handler is not
// supported.
func (s *inmemSubscription) stop() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
