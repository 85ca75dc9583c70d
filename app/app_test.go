package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/config"
	"github.com/infigaming-com/go-fxconvert/favorites"
	"github.com/infigaming-com/go-fxconvert/history"
	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/rate"
	"github.com/infigaming-com/go-fxconvert/syncbus"
	"github.com/infigaming-com/go-fxconvert/web"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"amount":1.0,"base":"USD","date":"2024-05-01","rates":{"EUR":0.9,"GBP":0.8}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	return &config.Config{
		ServiceName:         "fxconvert",
		Environment:         "test",
		StoreDriver:         driver,
		SQLitePath:          filepath.Join(t.TempDir(), "fxconvert.db"),
		RedisConnectTimeout: time.Second,
		RedisPrefix:         "fxconvert:",
		SyncDriver:          config.SyncNone,
		SyncChannel:         syncbus.DefaultChannel,
		RatesURL:            upstream(t).URL + "/latest?from=USD",
		RatesCacheTTL:       time.Hour,
		RatesMockFallback:   true,
		HTTPPort:            8080,
		HTTPAllowedOrigins:  []string{"*"},
		MetricsInterval:     time.Second,
	}
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), zap.NewNop(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_NoStore(t *testing.T) {
	a := newApp(t, testConfig(t, config.StoreNone))

	assert.False(t, a.Favorites.Persistent())
	assert.True(t, a.Favorites.Add("USD"))
	assert.Equal(t, []string{"USD"}, a.Favorites.List())

	s := a.NewSession()
	defer s.Close()
	assert.Equal(t, favorites.StorageAdvisory, s.State().StorageMessage)
}

func TestNew_SQLitePersists(t *testing.T) {
	cfg := testConfig(t, config.StoreSQLite)

	first, err := New(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)
	require.True(t, first.Favorites.Add("GBP"))
	first.History.Append(history.Record{From: "USD", To: "GBP", Amount: 1, Result: 0.8, Rate: 0.8, Timestamp: 1})
	first.Close()

	second := newApp(t, cfg)
	assert.True(t, second.Favorites.Persistent())
	assert.Equal(t, []string{"GBP"}, second.Favorites.List())
	require.Len(t, second.History.List(), 1)
	assert.Equal(t, "GBP", second.History.List()[0].To)
}

func TestNew_InProcessSync(t *testing.T) {
	kv := kvstore.NewMemory(0)
	bus := syncbus.NewInmem()
	t.Cleanup(func() { bus.Close() })

	cfg := testConfig(t, config.StoreMemory)
	a := newApp(t, cfg, WithStore(kv), WithBus(bus), WithOrigin("ctx-a"))
	b := newApp(t, cfg, WithStore(kv), WithBus(bus), WithOrigin("ctx-b"))
	assert.Equal(t, "ctx-a", a.Endpoint.Origin())

	require.True(t, a.Favorites.Add("JPY"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"JPY"}, b.Favorites.List())
	}, time.Second, 5*time.Millisecond)

	b.Favorites.Remove("JPY")
	require.Eventually(t, func() bool {
		return len(a.Favorites.List()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestNew_RedisSync(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.StoreRedis)
	cfg.RedisAddr = mr.Addr()
	cfg.SyncDriver = config.SyncRedis

	a := newApp(t, cfg)
	b := newApp(t, cfg)

	require.True(t, a.Favorites.Add("CHF"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"CHF"}, b.Favorites.List())
	}, 2*time.Second, 10*time.Millisecond)

	raw, err := mr.Get("fxconvert:" + favorites.DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["CHF"]`, raw)
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.StoreRedis)
	cfg.RedisAddr = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), zap.NewNop(), cfg)
	assert.Error(t, err)
}

func TestRates(t *testing.T) {
	a := newApp(t, testConfig(t, config.StoreMemory))
	require.NoError(t, a.Tracker.Load(context.Background()))

	st := a.Tracker.State()
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, map[string]float64{"USD": 1, "EUR": 0.9, "GBP": 0.8}, st.Snapshot.Rates)

	t.Run("remote api", func(t *testing.T) {
		srv := httptest.NewServer(a.Server(web.WithMode(gin.TestMode)).Handler())
		defer srv.Close()

		cfg := testConfig(t, config.StoreNone)
		cfg.RatesAPI = srv.URL
		remote := newApp(t, cfg)
		_, ok := remote.Provider.(*rate.APIClient)
		require.True(t, ok)

		require.NoError(t, remote.Tracker.Load(context.Background()))
		assert.Equal(t, 0.8, remote.Tracker.State().Snapshot.Rates["GBP"])
	})

	t.Run("session converts", func(t *testing.T) {
		s := a.NewSession()
		defer s.Close()
		st := s.State()
		require.NotNil(t, st.Result)
		assert.Equal(t, 0.9, *st.Result)
	})
}
