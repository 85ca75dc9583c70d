// Package history keeps the ten most recent conversions, newest first, in
// the durable store. It does not follow writes made by other contexts; each
// context reads the log when it starts.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
)

const (
	DefaultKey = "currency_converter_history"
	MaxEntries = 10

	defaultTimeout = 2 * time.Second
)

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Store) {
		s.metrics = recorder
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// Store never surfaces storage faults. A failed read or write is logged
// and the log carries on in memory for the session. After a failed write
// the store stops touching kv altogether.
type Store struct {
	lg      *zap.Logger
	kv      kvstore.Store
	key     string
	metrics *metrics.Recorder
	timeout time.Duration

	mu          sync.Mutex
	records     []Record
	sessionOnly bool
}

// NewStore reads the current log from kv. A nil kv keeps history in memory.
func NewStore(lg *zap.Logger, kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		lg:      lg,
		kv:      kv,
		key:     DefaultKey,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lg = s.lg.With(zap.String("key", s.key))

	ctx, cancel := s.context()
	defer cancel()
	if records, ok := s.read(ctx); ok {
		s.records = records
	}
	return s
}

// read returns the durable log. ok is false when the store could not be
// read; corrupt data reads as an empty log.
func (s *Store) read(ctx context.Context) ([]Record, bool) {
	if s.kv == nil {
		return nil, false
	}

	doc, err := kvstore.GetTyped[document](ctx, s.kv, s.key)
	switch {
	case err == nil:
		return truncate(doc.Conversions), true
	case kvstore.IsNotFound(err):
		return []Record{}, true
	case errors.Is(err, kvstore.ErrJsonUnmarshal):
		s.lg.Warn("ignoring malformed conversion history", zap.Error(err))
		return []Record{}, true
	default:
		s.lg.Warn("failed to read conversion history", zap.Error(err))
		s.metrics.StorageFault(ctx, "history")
		return nil, false
	}
}

// Append puts rec at the front of the log and drops entries past the
// tenth. While the store is durable the list is re-read first so writes
// from other contexts are kept.
func (s *Store) Append(rec Record) {
	ctx, cancel := s.context()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.records
	if s.durable() {
		if durable, ok := s.read(ctx); ok {
			base = durable
		}
	}
	s.records = truncate(append([]Record{rec}, base...))

	if !s.durable() {
		return
	}
	if err := kvstore.SetTyped(ctx, s.kv, s.key, document{Conversions: s.records}, 0); err != nil {
		s.lg.Warn("failed to save conversion history, keeping it for this session only", zap.Error(err))
		s.metrics.StorageFault(ctx, "history")
		s.sessionOnly = true
	}
}

// Persistent reports whether the log is still written to the durable store.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable()
}

func (s *Store) durable() bool {
	return s.kv != nil && !s.sessionOnly
}

func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record{}, s.records...)
}

// Clear empties the log here and in the durable store.
func (s *Store) Clear() {
	ctx, cancel := s.context()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = []Record{}
	if !s.durable() {
		return
	}
	if err := s.kv.Delete(ctx, s.key); err != nil {
		s.lg.Warn("failed to clear conversion history", zap.Error(err))
		s.metrics.StorageFault(ctx, "history")
	}
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func truncate(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	if len(records) > MaxEntries {
		return records[:MaxEntries:MaxEntries]
	}
	return records
}
