package rate

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/kvstore"
)

type failingSource struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *failingSource) Name() string { return s.name }

func (s *failingSource) Fetch(context.Context) (*Snapshot, error) {
	s.calls.Add(1)
	return nil, s.err
}

// countingProvider returns a fresh copy of snapshot and counts calls.
type countingProvider struct {
	snapshot *Snapshot
	err      error
	current  atomic.Int32
	refresh  atomic.Int32
}

func (p *countingProvider) Current(context.Context) (*Snapshot, error) {
	p.current.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot.Clone(), nil
}

func (p *countingProvider) Refresh(context.Context) (*Snapshot, error) {
	p.refresh.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot.Clone(), nil
}

func usdSnapshot() *Snapshot {
	return &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": 0.9}, Source: "test"}
}

func TestSnapshot(t *testing.T) {
	var nilSnapshot *Snapshot
	_, ok := nilSnapshot.RateOf("USD")
	assert.False(t, ok)
	assert.Nil(t, nilSnapshot.Clone())

	s := usdSnapshot()
	v, ok := s.RateOf("EUR")
	require.True(t, ok)
	assert.Equal(t, 0.9, v)

	c := s.Clone()
	c.Rates["EUR"] = 2
	assert.Equal(t, 0.9, s.Rates["EUR"])

	tests := []struct {
		name    string
		s       *Snapshot
		wantErr bool
	}{
		{name: "valid", s: usdSnapshot()},
		{name: "mock is valid", s: MockSnapshot()},
		{name: "nil", s: nil, wantErr: true},
		{name: "no rates", s: &Snapshot{Base: "USD"}, wantErr: true},
		{name: "base not one", s: &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 2}}, wantErr: true},
		{name: "negative rate", s: &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": -1}}, wantErr: true},
		{name: "zero rate", s: &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": 0}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				assert.Equal(t, errors.ErrCodeRatesMalformed, errors.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMockSnapshot(t *testing.T) {
	m := MockSnapshot()
	assert.Equal(t, "USD", m.Base)
	assert.Len(t, m.Rates, 10)
	assert.Equal(t, 0.73, m.Rates["GBP"])
	assert.Equal(t, 149.5, m.Rates["JPY"])
	assert.Equal(t, 17.25, m.Rates["MXN"])

	m.Rates["GBP"] = 9
	assert.Equal(t, 0.73, MockSnapshot().Rates["GBP"])
}

func TestFrankfurterSource(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	body := `{"amount":1.0,"base":"USD","date":"2024-05-01","rates":{"EUR":0.9351,"GBP":0.7993,"JPY":157.8}}`
	var agent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		w.WriteHeader(int(status.Load()))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	src := NewFrankfurterSource(zap.NewNop(), srv.URL+"/latest?from=USD")
	assert.Equal(t, FrankfurterName, src.Name())

	t.Run("injects the base", func(t *testing.T) {
		s, err := src.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "USD", s.Base)
		assert.Equal(t, map[string]float64{"USD": 1, "EUR": 0.9351, "GBP": 0.7993, "JPY": 157.8}, s.Rates)
		assert.Equal(t, FrankfurterName, s.Source)
		assert.Contains(t, agent, "Mozilla/5.0")
	})

	t.Run("bad status", func(t *testing.T) {
		status.Store(http.StatusBadGateway)
		defer status.Store(http.StatusOK)

		_, err := src.Fetch(context.Background())
		require.Error(t, err)
		assert.Equal(t, "HTTP error! status: 502", err.Error())
		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		body = `<html>`
		defer func() { body = `{"base":"USD","rates":{"EUR":0.9}}` }()

		_, err := src.Fetch(context.Background())
		assert.ErrorIs(t, err, ErrRatesMalformed)
	})

	t.Run("non positive rate", func(t *testing.T) {
		body = `{"base":"USD","rates":{"EUR":0}}`
		_, err := src.Fetch(context.Background())
		assert.ErrorIs(t, err, ErrRatesMalformed)
	})

	t.Run("unreachable", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		url := down.URL
		down.Close()

		_, err := NewFrankfurterSource(zap.NewNop(), url).Fetch(context.Background())
		assert.Equal(t, errors.ErrCodeRatesUnavailable, errors.CodeOf(err))
	})
}

func TestFallbackProvider(t *testing.T) {
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	broken := &failingSource{name: "broken", err: stderrors.New("boom")}

	t.Run("first healthy source wins", func(t *testing.T) {
		good := NewStaticSource("good", usdSnapshot())
		p := NewFallbackProvider(zap.NewNop(), []Source{broken, good}, WithClock(clock))

		s, err := p.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "good", s.Source)
		assert.Equal(t, int64(1700000000000), s.Timestamp)
		assert.Equal(t, 0.9, s.Rates["EUR"])
	})

	t.Run("mock when everything fails", func(t *testing.T) {
		p := NewFallbackProvider(zap.NewNop(), []Source{broken}, WithClock(clock))

		s, err := p.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MockSourceName, s.Source)
		assert.Equal(t, 0.85, s.Rates["EUR"])
		assert.Equal(t, int64(1700000000000), s.Timestamp)
	})

	t.Run("error without mock", func(t *testing.T) {
		p := NewFallbackProvider(zap.NewNop(), []Source{broken}, WithoutMock())

		_, err := p.Current(context.Background())
		require.Error(t, err)
		assert.Equal(t, "boom", err.Error())
		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})

	t.Run("no sources without mock", func(t *testing.T) {
		_, err := NewFallbackProvider(zap.NewNop(), nil, WithoutMock()).Current(context.Background())
		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		second := &failingSource{name: "second", err: stderrors.New("nope")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := NewFallbackProvider(zap.NewNop(), []Source{broken, second}, WithoutMock())
		_, err := p.Current(ctx)
		assert.Error(t, err)
		assert.Equal(t, int32(0), second.calls.Load())
	})
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("current is served from cache", func(t *testing.T) {
		inner := &countingProvider{snapshot: usdSnapshot()}
		p := NewCachedProvider(zap.NewNop(), inner, kvstore.NewMemory(0), 0)

		first, err := p.Current(ctx)
		require.NoError(t, err)
		second, err := p.Current(ctx)
		require.NoError(t, err)

		assert.Equal(t, int32(1), inner.current.Load())
		assert.Equal(t, first.Rates, second.Rates)
		assert.Equal(t, "cache", second.Source)
	})

	t.Run("refresh bypasses and rewrites the cache", func(t *testing.T) {
		inner := &countingProvider{snapshot: usdSnapshot()}
		p := NewCachedProvider(zap.NewNop(), inner, kvstore.NewMemory(0), time.Hour)
		_, err := p.Current(ctx)
		require.NoError(t, err)

		inner.snapshot = &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": 0.95}}
		s, err := p.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.95, s.Rates["EUR"])
		assert.Equal(t, int32(1), inner.refresh.Load())

		s, err = p.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.95, s.Rates["EUR"])
		assert.Equal(t, int32(1), inner.current.Load())
	})

	t.Run("mock rates are not cached", func(t *testing.T) {
		inner := &countingProvider{snapshot: MockSnapshot()}
		p := NewCachedProvider(zap.NewNop(), inner, kvstore.NewMemory(0), time.Hour)

		_, err := p.Current(ctx)
		require.NoError(t, err)
		_, err = p.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), inner.current.Load())
	})

	t.Run("corrupt cache falls through", func(t *testing.T) {
		kv := kvstore.NewMemory(0)
		require.NoError(t, kv.Set(ctx, DefaultCacheKey, "{{{", 0))
		inner := &countingProvider{snapshot: usdSnapshot()}

		s, err := NewCachedProvider(zap.NewNop(), inner, kv, time.Hour).Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.9, s.Rates["EUR"])
		assert.Equal(t, int32(1), inner.current.Load())
	})

	t.Run("inner error surfaces", func(t *testing.T) {
		inner := &countingProvider{err: ErrRatesUnavailable}
		p := NewCachedProvider(zap.NewNop(), inner, kvstore.NewUnavailable(), time.Hour)

		_, err := p.Current(ctx)
		assert.ErrorIs(t, err, ErrRatesUnavailable)
		_, err = p.Refresh(ctx)
		assert.ErrorIs(t, err, ErrRatesUnavailable)
	})
}

func TestAPIClient(t *testing.T) {
	var refreshParam, cacheControl string
	var fail atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rates", r.URL.Path)
		refreshParam = r.URL.Query().Get("refresh")
		cacheControl = r.Header.Get("Cache-Control")
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"error":"upstream down"}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"base":"USD","rates":{"USD":1,"GBP":0.73},"timestamp":1700000000000}}`))
	}))
	defer srv.Close()

	c := NewAPIClient(zap.NewNop(), srv.URL+"/")
	c.now = func() time.Time { return time.UnixMilli(42) }

	s, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.73, s.Rates["GBP"])
	assert.Equal(t, int64(1700000000000), s.Timestamp)
	assert.Empty(t, refreshParam)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", refreshParam)
	assert.Equal(t, "no-store", cacheControl)

	fail.Store(true)
	_, err = c.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, "upstream down", err.Error())
}

// gatedProvider blocks each call until the test releases it.
type gatedProvider struct {
	mu    sync.Mutex
	gates []chan result
}

type result struct {
	snapshot *Snapshot
	err      error
}

func (p *gatedProvider) wait() (*Snapshot, error) {
	gate := make(chan result, 1)
	p.mu.Lock()
	p.gates = append(p.gates, gate)
	p.mu.Unlock()
	r := <-gate
	return r.snapshot, r.err
}

func (p *gatedProvider) Current(context.Context) (*Snapshot, error) { return p.wait() }
func (p *gatedProvider) Refresh(context.Context) (*Snapshot, error) { return p.wait() }

func (p *gatedProvider) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.gates)
}

func (p *gatedProvider) release(i int, r result) {
	p.mu.Lock()
	gate := p.gates[i]
	p.mu.Unlock()
	gate <- r
}

func TestTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("load then failed refresh keeps rates", func(t *testing.T) {
		inner := &countingProvider{snapshot: usdSnapshot()}
		tr := NewTracker(zap.NewNop(), inner)
		defer tr.Close()

		var states []State
		tr.Subscribe(func(s State) { states = append(states, s) })

		require.NoError(t, tr.Load(ctx))
		st := tr.State()
		require.NotNil(t, st.Snapshot)
		assert.False(t, st.Loading)
		assert.Empty(t, st.Err)

		inner.err = errors.NewError(errors.ErrCodeRatesUnavailable, "HTTP error! status: 503", nil)
		assert.Error(t, tr.Refresh(ctx))
		st = tr.State()
		assert.Equal(t, "HTTP error! status: 503", st.Err)
		assert.False(t, st.Refreshing)
		require.NotNil(t, st.Snapshot)
		assert.Equal(t, 0.9, st.Snapshot.Rates["EUR"])

		// initial, loading, loaded, refreshing, failed
		require.Len(t, states, 5)
		assert.True(t, states[1].Loading)
		assert.True(t, states[3].Refreshing)
		assert.Empty(t, states[3].Err)
	})

	t.Run("failed first load has no rates", func(t *testing.T) {
		tr := NewTracker(zap.NewNop(), &countingProvider{err: stderrors.New("")})
		assert.Error(t, tr.Load(ctx))
		st := tr.State()
		assert.Nil(t, st.Snapshot)
		assert.Equal(t, DefaultErrorMessage, st.Err)
	})

	t.Run("older result never overwrites a newer one", func(t *testing.T) {
		p := &gatedProvider{}
		tr := NewTracker(zap.NewNop(), p)
		defer tr.Close()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() { defer wg.Done(); tr.Load(ctx) }()
		require.Eventually(t, func() bool { return p.pending() == 1 }, time.Second, time.Millisecond)
		wg.Add(1)
		go func() { defer wg.Done(); tr.Refresh(ctx) }()
		require.Eventually(t, func() bool { return p.pending() == 2 }, time.Second, time.Millisecond)

		newer := &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": 0.8}}
		older := &Snapshot{Base: "USD", Rates: map[string]float64{"USD": 1, "EUR": 0.7}}
		p.release(1, result{snapshot: newer})
		require.Eventually(t, func() bool { return tr.State().Snapshot != nil }, time.Second, time.Millisecond)
		p.release(0, result{snapshot: older})
		wg.Wait()

		st := tr.State()
		assert.Equal(t, 0.8, st.Snapshot.Rates["EUR"])
		assert.False(t, st.Loading)
		assert.False(t, st.Refreshing)
	})

	t.Run("results after close are dropped", func(t *testing.T) {
		p := &gatedProvider{}
		tr := NewTracker(zap.NewNop(), p)

		calls := 0
		tr.Subscribe(func(State) { calls++ })

		done := make(chan struct{})
		go func() { defer close(done); tr.Load(ctx) }()
		require.Eventually(t, func() bool { return p.pending() == 1 }, time.Second, time.Millisecond)
		tr.Close()
		p.release(0, result{snapshot: usdSnapshot()})
		<-done

		assert.Nil(t, tr.State().Snapshot)
		assert.Equal(t, 2, calls)
		assert.ErrorIs(t, tr.Refresh(ctx), ErrTrackerClosed)
	})

	t.Run("listener panic is contained", func(t *testing.T) {
		tr := NewTracker(zap.NewNop(), &countingProvider{snapshot: usdSnapshot()})
		tr.Subscribe(func(State) { panic("render failed") })
		assert.NotPanics(t, func() { require.NoError(t, tr.Load(ctx)) })
	})
}
