package rate

import (
	"context"
	stderrors "errors"
	"sync"

	"go.uber.org/zap"
)

var ErrTrackerClosed = stderrors.New("rate tracker closed")

// State is what a view renders. Snapshot is nil until the first successful
// load and survives failed refreshes.
type State struct {
	Snapshot   *Snapshot
	Loading    bool
	Refreshing bool
	Err        string
}

// Tracker holds the latest snapshot from a provider. Each Load or Refresh
// takes a token; a result is applied only if no newer call was started
// since, and never after Close.
type Tracker struct {
	lg       *zap.Logger
	provider Provider

	mu        sync.Mutex
	state     State
	token     uint64
	closed    bool
	listeners map[uint64]func(State)
	nextID    uint64
}

func NewTracker(lg *zap.Logger, provider Provider) *Tracker {
	return &Tracker{
		lg:        lg,
		provider:  provider,
		listeners: map[uint64]func(State){},
	}
}

// Load fetches through the provider's cache.
func (t *Tracker) Load(ctx context.Context) error {
	return t.fetch(ctx, true)
}

// Refresh forces a fresh fetch and keeps the current snapshot on failure.
func (t *Tracker) Refresh(ctx context.Context) error {
	return t.fetch(ctx, false)
}

func (t *Tracker) fetch(ctx context.Context, initial bool) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrackerClosed
	}
	t.token++
	token := t.token
	t.state.Err = ""
	if initial {
		t.state.Loading = true
	} else {
		t.state.Refreshing = true
	}
	t.publishLocked()

	var (
		snapshot *Snapshot
		err      error
	)
	if initial {
		snapshot, err = t.provider.Current(ctx)
	} else {
		snapshot, err = t.provider.Refresh(ctx)
	}

	t.mu.Lock()
	if t.closed || token != t.token {
		t.mu.Unlock()
		t.lg.Debug("dropping superseded exchange rate result", zap.Uint64("token", token))
		return err
	}
	if err != nil {
		t.state.Err = errorMessage(err)
	} else {
		t.state.Snapshot = snapshot
		t.state.Err = ""
	}
	t.state.Loading = false
	t.state.Refreshing = false
	t.publishLocked()

	return err
}

// State returns the current state. The snapshot is shared; do not modify it.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Subscribe calls fn with the current state and after every change.
func (t *Tracker) Subscribe(fn func(State)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	state := t.state
	t.mu.Unlock()

	t.call(fn, state)

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Close drops in-flight results and all listeners.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.listeners = map[uint64]func(State){}
	t.mu.Unlock()
}

// publishLocked is entered with t.mu held and releases it.
func (t *Tracker) publishLocked() {
	state := t.state
	listeners := make([]func(State), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		t.call(fn, state)
	}
}

func (t *Tracker) call(fn func(State), state State) {
	defer func() {
		if r := recover(); r != nil {
			t.lg.Error("rate listener panicked", zap.Any("panic", r))
		}
	}()
	fn(state)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return DefaultErrorMessage
	}
	return err.Error()
}
