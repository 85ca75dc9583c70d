// Package converter ties the stores, the conversion engine and the rate
// tracker into the state a converter view renders.
package converter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/conversion"
	"github.com/infigaming-com/go-fxconvert/currency"
	"github.com/infigaming-com/go-fxconvert/favorites"
	"github.com/infigaming-com/go-fxconvert/history"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
	"github.com/infigaming-com/go-fxconvert/rate"
)

const (
	DefaultAmount = "1"
	DefaultFrom   = "USD"
	DefaultTo     = "EUR"
)

// State is a copy of everything a view shows. Result is nil until a
// conversion succeeds and again after an invalid amount.
type State struct {
	Amount          string           `json:"amount"`
	From            string           `json:"from"`
	To              string           `json:"to"`
	Result          *float64         `json:"result,omitempty"`
	DisplayResult   string           `json:"displayResult,omitempty"`
	DisplayRate     string           `json:"displayRate,omitempty"`
	ValidationError string           `json:"validationError,omitempty"`
	History         []history.Record `json:"history"`
	Favorites       []string         `json:"favorites"`
	LimitMessage    string           `json:"limitMessage,omitempty"`
	StorageMessage  string           `json:"storageMessage,omitempty"`
	Rates           rate.State       `json:"-"`
}

type Option func(*Session)

func WithRegistry(registry *currency.Registry) Option {
	return func(s *Session) {
		s.registry = registry
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Session) {
		s.metrics = recorder
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithInitial seeds the selection. An empty amount keeps the default and
// unsupported codes fall back to USD and EUR. When both codes end up the
// same, the target becomes the first other registry currency.
func WithInitial(amount, from, to string) Option {
	return func(s *Session) {
		s.initAmount = amount
		s.initFrom = from
		s.initTo = to
	}
}

// Session is one converter view. Every change to the amount, either
// currency or the loaded rates recomputes the result, and every successful
// computation is appended to history.
type Session struct {
	lg        *zap.Logger
	tracker   *rate.Tracker
	history   *history.Store
	favorites *favorites.Controller
	registry  *currency.Registry
	metrics   *metrics.Recorder
	now       func() time.Time

	initAmount, initFrom, initTo string

	mu         sync.Mutex
	amount     string
	from       string
	to         string
	result     *float64
	rateText   string
	validation string
	records    []history.Record
	rates      rate.State
	listeners  map[uint64]func(State)
	nextID     uint64
	unsubs     []func()
}

func NewSession(lg *zap.Logger, tracker *rate.Tracker, hist *history.Store, favs *favorites.Controller, opts ...Option) *Session {
	s := &Session{
		lg:        lg,
		tracker:   tracker,
		history:   hist,
		favorites: favs,
		registry:  currency.Default(),
		now:       time.Now,
		listeners: map[uint64]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.amount, s.from, s.to = s.initial()
	s.records = hist.List()
	s.rates = tracker.State()

	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()

	s.unsubs = append(s.unsubs,
		tracker.Subscribe(s.onRates),
		favs.Store().Subscribe(func([]string) { s.notify() }),
	)
	return s
}

func (s *Session) initial() (amount, from, to string) {
	amount, from, to = DefaultAmount, DefaultFrom, DefaultTo
	if s.initAmount != "" {
		amount = s.initAmount
	}
	from, to = s.resolvePair(s.initFrom, s.initTo, from, to)
	return amount, from, to
}

// resolvePair keeps fallbackFrom or fallbackTo in place of an unsupported
// code. A pair that ends up the same gets the first other registry
// currency as its target.
func (s *Session) resolvePair(from, to, fallbackFrom, fallbackTo string) (string, string) {
	if !s.registry.IsSupported(from) {
		from = fallbackFrom
	}
	if !s.registry.IsSupported(to) {
		to = fallbackTo
	}
	if from == to {
		to = s.registry.Alternate(from)
	}
	return from, to
}

func (s *Session) onRates(st rate.State) {
	s.mu.Lock()
	changed := st.Snapshot != s.rates.Snapshot
	s.rates = st
	if changed {
		s.recomputeLocked()
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SetAmount(amount string) {
	s.update(func() bool {
		if amount == s.amount {
			return false
		}
		s.amount = amount
		return true
	})
}

// SetFrom selects the source currency. Picking the current target swaps
// the pair. Unsupported codes are ignored.
func (s *Session) SetFrom(code string) {
	s.update(func() bool {
		if code == s.from || !s.registry.IsSupported(code) {
			return false
		}
		if code == s.to {
			s.to = s.from
		}
		s.from = code
		return true
	})
}

// SetTo mirrors SetFrom.
func (s *Session) SetTo(code string) {
	s.update(func() bool {
		if code == s.to || !s.registry.IsSupported(code) {
			return false
		}
		if code == s.from {
			s.from = s.to
		}
		s.to = code
		return true
	})
}

func (s *Session) Swap() {
	s.update(func() bool {
		s.from, s.to = s.to, s.from
		return true
	})
}

// LoadFromHistory restores the amount and pair of a past conversion. A
// code that is no longer supported leaves the current selection on that
// side.
func (s *Session) LoadFromHistory(rec history.Record) {
	s.update(func() bool {
		s.amount = strconv.FormatFloat(rec.Amount, 'f', -1, 64)
		s.from, s.to = s.resolvePair(rec.From, rec.To, s.from, s.to)
		return true
	})
}

func (s *Session) ClearHistory() {
	s.history.Clear()
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	s.notify()
}

// ToggleFavorite must not hold s.mu: the store notifies synchronously.
// The limit message changes after the store has notified, so state is
// published again here.
func (s *Session) ToggleFavorite(code string) favorites.ToggleResult {
	res := s.favorites.ToggleFavorite(code)
	if res != favorites.Rejected {
		s.notify()
	}
	return res
}

// Refresh asks the tracker for fresh rates.
func (s *Session) Refresh(ctx context.Context) error {
	return s.tracker.Refresh(ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe calls fn with the current state and after every change.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	st := s.stateLocked()
	s.mu.Unlock()

	s.call(fn, st)

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close detaches the session from the tracker and the favorites store.
func (s *Session) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.listeners = map[uint64]func(State){}
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (s *Session) update(apply func() bool) {
	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return
	}
	s.recomputeLocked()
	s.mu.Unlock()
	s.notify()
}

// recomputeLocked validates first so an invalid amount is reported before
// rates arrive. Missing rates leave the previous result in place.
func (s *Session) recomputeLocked() {
	amount, err := conversion.ParseAmount(s.amount)
	if err != nil {
		s.validation = err.Error()
		s.result = nil
		s.rateText = ""
		return
	}
	s.validation = ""

	fromRate, toRate, ok := conversion.Ready(s.rates.Snapshot, s.from, s.to)
	if !ok {
		return
	}

	result := conversion.Convert(amount, fromRate, toRate)
	s.result = &result
	s.rateText = conversion.DisplayRate(fromRate, toRate)

	s.history.Append(history.Record{
		From:      s.from,
		To:        s.to,
		Amount:    amount,
		Result:    result,
		Rate:      conversion.Rate(fromRate, toRate),
		Timestamp: s.now().UnixMilli(),
	})
	s.records = s.history.List()
	s.metrics.Conversion(context.Background(), s.from, s.to)

	s.lg.Debug("converted",
		zap.String("from", s.from),
		zap.String("to", s.to),
		zap.Float64("amount", amount),
		zap.Float64("result", result))
}

func (s *Session) stateLocked() State {
	st := State{
		Amount:          s.amount,
		From:            s.from,
		To:              s.to,
		DisplayRate:     s.rateText,
		ValidationError: s.validation,
		History:         append([]history.Record(nil), s.records...),
		Favorites:       s.favorites.Favorites(),
		LimitMessage:    s.favorites.LimitMessage(),
		StorageMessage:  s.favorites.StorageMessage(),
		Rates:           s.rates,
	}
	if s.result != nil {
		v := *s.result
		st.Result = &v
		st.DisplayResult = conversion.FormatAmount(v)
	}
	return st
}

func (s *Session) notify() {
	s.mu.Lock()
	st := s.stateLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		s.call(fn, st)
	}
}

func (s *Session) call(fn func(State), st State) {
	defer func() {
		if r := recover(); r != nil {
			s.lg.Error("session listener panicked", zap.Any("panic", r))
		}
	}()
	fn(st)
}
