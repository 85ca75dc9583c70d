// Package favorites keeps the user's pinned currencies: at most five unique
// codes, newest first, persisted to a durable store and kept consistent with
// other contexts sharing that store.
package favorites

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/currency"
	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
	"github.com/infigaming-com/go-fxconvert/syncbus"
)

const (
	DefaultKey   = "currency_converter_favorites"
	MaxFavorites = 5

	defaultTimeout = 2 * time.Second
)

// Listener receives a copy of the favorite set.
type Listener func(codes []string)

// ToggleResult reports what Toggle did.
type ToggleResult int

const (
	// Rejected means the code is not a supported currency. Nothing changed.
	Rejected ToggleResult = iota
	Added
	Removed
	// LimitReached means the set is full. Nothing changed.
	LimitReached
)

func (r ToggleResult) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case LimitReached:
		return "limit_reached"
	default:
		return "rejected"
	}
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithRegistry(registry *currency.Registry) Option {
	return func(s *Store) {
		s.registry = registry
	}
}

// WithObserver subscribes the store to writes made by other contexts.
func WithObserver(observer syncbus.Observer) Option {
	return func(s *Store) {
		s.observer = observer
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Store) {
		s.metrics = recorder
	}
}

// WithProbe turns the start-up write probe on or off. With the probe off a
// broken store is only detected on the first failed write.
func WithProbe(enabled bool) Option {
	return func(s *Store) {
		s.probe = enabled
	}
}

// WithTimeout bounds each call to the durable store.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// Store is safe for concurrent use. No method returns an error: storage
// faults are logged and the store carries on in memory.
type Store struct {
	lg       *zap.Logger
	kv       kvstore.Store
	key      string
	registry *currency.Registry
	observer syncbus.Observer
	metrics  *metrics.Recorder
	probe    bool
	timeout  time.Duration

	mu         sync.Mutex
	codes      []string
	persistent bool
	closed     bool
	listeners  map[uint64]Listener
	nextID     uint64
	stopSync   func()

	// pending holds snapshots in mutation order. Only the goroutine that
	// set delivering drains it.
	pending    []delivery
	delivering bool
}

type delivery struct {
	codes     []string
	listeners map[uint64]Listener
}

// NewStore loads the favorite set from kv. A nil kv gives a memory-only
// store.
func NewStore(lg *zap.Logger, kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		lg:        lg,
		kv:        kv,
		key:       DefaultKey,
		registry:  currency.Default(),
		observer:  syncbus.Noop(),
		probe:     true,
		timeout:   defaultTimeout,
		listeners: map[uint64]Listener{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lg = s.lg.With(zap.String("key", s.key))

	s.persistent = s.checkStorage()
	if s.persistent {
		s.codes = s.load()
	}
	s.stopSync = s.observer.Observe(s.onChange)

	return s
}

func (s *Store) checkStorage() bool {
	if s.kv == nil {
		s.lg.Info("favorites will be kept in memory, no durable store configured")
		return false
	}
	if !s.probe {
		return true
	}

	ctx, cancel := s.context()
	defer cancel()
	if err := kvstore.Probe(ctx, s.kv); err != nil {
		s.lg.Warn("durable store failed probe, favorites will be kept in memory", zap.Error(err))
		s.metrics.StorageFault(ctx, "favorites")
		return false
	}
	return true
}

func (s *Store) load() []string {
	ctx, cancel := s.context()
	defer cancel()

	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if kvstore.IsNotFound(err) {
			return []string{}
		}
		s.lg.Warn("failed to read favorites, continuing in memory", zap.Error(err))
		s.metrics.StorageFault(ctx, "favorites")
		s.persistent = false
		return []string{}
	}
	return s.sanitize(raw)
}

// sanitize parses raw as a JSON array and keeps the first five distinct
// supported codes. Anything unparseable yields an empty set.
func (s *Store) sanitize(raw string) []string {
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.lg.Debug("ignoring malformed favorites", zap.Error(err))
		return []string{}
	}

	codes := lo.FilterMap(items, func(item any, _ int) (string, bool) {
		code, ok := item.(string)
		return code, ok && s.registry.IsSupported(code)
	})
	codes = lo.Uniq(codes)
	if len(codes) > MaxFavorites {
		codes = codes[:MaxFavorites]
	}
	return codes
}

func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.codes...)
}

func (s *Store) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes) >= MaxFavorites
}

func (s *Store) Contains(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Contains(s.codes, code)
}

// Persistent reports whether changes still reach the durable store.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistent
}

// Add puts code at the front of the set. It returns false without changing
// anything when code is unsupported, already present or the set is full.
func (s *Store) Add(code string) bool {
	s.mu.Lock()
	return s.addLocked(code) == Added
}

// Remove drops code, keeping the order of the rest. Absent codes are
// ignored.
func (s *Store) Remove(code string) {
	s.mu.Lock()
	if s.closed || !lo.Contains(s.codes, code) {
		s.mu.Unlock()
		return
	}
	s.removeLocked(code)
}

// Toggle removes code if present, otherwise tries to add it.
func (s *Store) Toggle(code string) ToggleResult {
	s.mu.Lock()
	if !s.closed && lo.Contains(s.codes, code) {
		s.removeLocked(code)
		return Removed
	}
	return s.addLocked(code)
}

// addLocked and removeLocked are entered with s.mu held and release it.
func (s *Store) addLocked(code string) ToggleResult {
	switch {
	case s.closed, !s.registry.IsSupported(code), lo.Contains(s.codes, code):
		s.mu.Unlock()
		return Rejected
	case len(s.codes) >= MaxFavorites:
		s.mu.Unlock()
		return LimitReached
	}
	s.codes = append([]string{code}, s.codes...)
	s.commit("add")
	return Added
}

func (s *Store) removeLocked(code string) {
	s.codes = lo.Without(s.codes, code)
	s.commit("remove")
}

// commit persists the current set, then releases the lock and notifies.
// The caller must hold s.mu.
func (s *Store) commit(op string) {
	ctx, cancel := s.context()
	defer cancel()

	s.persist(ctx)
	s.metrics.FavoriteMutation(ctx, op)
	s.enqueueLocked(s.listenersLocked())
	s.flushLocked()
}

func (s *Store) persist(ctx context.Context) {
	if !s.persistent {
		return
	}
	if err := kvstore.SetTyped(ctx, s.kv, s.key, s.codes, 0); err != nil {
		s.lg.Warn("failed to persist favorites, continuing in memory", zap.Error(err))
		s.metrics.StorageFault(ctx, "favorites")
		s.persistent = false
	}
}

// onChange applies a write made by another context. The new value replaces
// the set wholesale.
func (s *Store) onChange(c syncbus.Change) {
	if c.Key != s.key {
		return
	}

	codes := []string{}
	if !c.Deleted {
		codes = s.sanitize(c.Value)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.codes = codes
	s.metrics.FavoriteMutation(context.Background(), "sync")
	s.lg.Debug("favorites replaced by another context", zap.Strings("codes", codes), zap.String("origin", c.Origin))
	s.enqueueLocked(s.listenersLocked())
	s.flushLocked()
}

// Subscribe calls listener with the current set and again after every
// change. Listeners see sets in the order the changes were made; a change
// made while a listener runs is delivered after it returns. The returned
// func stops further calls.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.enqueueLocked(map[uint64]Listener{id: listener})
	s.flushLocked()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) listenersLocked() map[uint64]Listener {
	listeners := make(map[uint64]Listener, len(s.listeners))
	for id, l := range s.listeners {
		listeners[id] = l
	}
	return listeners
}

func (s *Store) enqueueLocked(listeners map[uint64]Listener) {
	s.pending = append(s.pending, delivery{
		codes:     append([]string{}, s.codes...),
		listeners: listeners,
	})
}

// flushLocked is entered with s.mu held and releases it. If another call is
// already draining the queue it leaves the new entries to that call.
func (s *Store) flushLocked() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		d := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		s.notify(d.codes, d.listeners)
		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *Store) notify(snapshot []string, listeners map[uint64]Listener) {
	for id, l := range listeners {
		// skip listeners removed while we were outside the lock
		s.mu.Lock()
		_, live := s.listeners[id]
		s.mu.Unlock()
		if !live {
			continue
		}
		s.call(l, append([]string{}, snapshot...))
	}
}

func (s *Store) call(l Listener, codes []string) {
	defer func() {
		if r := recover(); r != nil {
			s.lg.Error("favorites listener panicked", zap.Any("panic", r))
		}
	}()
	l(codes)
}

// Close stops cross-context sync and drops all listeners. The durable store
// is not closed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = map[uint64]Listener{}
	stop := s.stopSync
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
