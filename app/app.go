// Package app wires one converter context from a config.Config: the durable
// store, the change bus, both stores, the rate provider and metrics.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/config"
	"github.com/infigaming-com/go-fxconvert/converter"
	"github.com/infigaming-com/go-fxconvert/currency"
	"github.com/infigaming-com/go-fxconvert/favorites"
	"github.com/infigaming-com/go-fxconvert/history"
	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
	"github.com/infigaming-com/go-fxconvert/rate"
	"github.com/infigaming-com/go-fxconvert/syncbus"
	"github.com/infigaming-com/go-fxconvert/util"
	"github.com/infigaming-com/go-fxconvert/web"
)

type Option func(*options)

type options struct {
	kv     kvstore.Store
	bus    syncbus.Bus
	origin string
}

// WithStore uses kv instead of the configured store driver. The caller
// keeps ownership of kv.
func WithStore(kv kvstore.Store) Option {
	return func(o *options) {
		o.kv = kv
	}
}

// WithBus uses bus instead of the configured sync driver, so several
// contexts in one process can share an in-memory bus. The caller keeps
// ownership of bus.
func WithBus(bus syncbus.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = origin
	}
}

type App struct {
	lg       *zap.Logger
	cfg      *config.Config
	registry *currency.Registry

	Store     kvstore.Store
	Endpoint  *syncbus.Endpoint
	Favorites *favorites.Store
	History   *history.Store
	Provider  rate.Provider
	Tracker   *rate.Tracker
	Metrics   *metrics.Recorder

	closers []func()
}

// New builds a context. On error everything opened so far is closed.
func New(ctx context.Context, lg *zap.Logger, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{lg: lg, cfg: cfg, registry: currency.Default()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err = a.initMetrics(ctx); err != nil {
		return nil, err
	}

	var client *redis.Client
	if (o.kv == nil && cfg.StoreDriver == config.StoreRedis) || (o.bus == nil && cfg.SyncDriver == config.SyncRedis) {
		if client, err = util.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisConnectTimeout); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
	}

	durable := o.kv
	if durable == nil {
		if durable, err = a.openStore(client); err != nil {
			return nil, err
		}
	}

	bus := o.bus
	if bus == nil {
		if bus, err = a.openBus(ctx, client); err != nil {
			return nil, err
		}
	}

	a.Store = durable
	observer := syncbus.Noop()
	if bus != nil && durable != nil {
		a.Endpoint = syncbus.NewEndpoint(lg, bus, o.origin)
		a.Store = a.Endpoint.Wrap(durable)
		observer = a.Endpoint
	}

	a.Favorites = favorites.NewStore(lg, a.Store,
		favorites.WithRegistry(a.registry),
		favorites.WithObserver(observer),
		favorites.WithMetrics(a.Metrics),
	)
	a.closers = append(a.closers, a.Favorites.Close)

	a.History = history.NewStore(lg, a.Store, history.WithMetrics(a.Metrics))

	a.Provider = a.newProvider(durable)
	a.Tracker = rate.NewTracker(lg, a.Provider)
	a.closers = append(a.closers, a.Tracker.Close)

	lg.Info("converter context ready",
		zap.String("store", cfg.StoreDriver),
		zap.String("sync", cfg.SyncDriver),
		zap.Bool("persistent", a.Favorites.Persistent()))
	return a, nil
}

func (a *App) initMetrics(ctx context.Context) error {
	if !a.cfg.MetricsEnabled() {
		a.Metrics = metrics.Noop()
		return nil
	}

	exporter, shutdown, err := metrics.NewMetricExporter(ctx,
		metrics.WithServiceName(a.cfg.ServiceName),
		metrics.WithEnvironment(a.cfg.Environment),
		metrics.WithOTLPEndpoint(a.cfg.OTLPEndpoint),
		metrics.WithOTLPGRPCEndpoint(a.cfg.OTLPGRPCEndpoint),
		metrics.WithInterval(a.cfg.MetricsInterval),
	)
	if err != nil {
		return fmt.Errorf("failed to start metrics: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	if a.Metrics, err = metrics.NewRecorder(exporter.Meter()); err != nil {
		return err
	}
	return nil
}

// openStore returns nil for StoreNone; the stores then keep data in memory.
func (a *App) openStore(client *redis.Client) (kvstore.Store, error) {
	var (
		kv  kvstore.Store
		err error
	)
	switch a.cfg.StoreDriver {
	case config.StoreNone:
		return nil, nil
	case config.StoreMemory:
		kv = kvstore.NewMemory(0)
	case config.StoreRedis:
		kv = kvstore.NewRedis(a.lg, client, a.cfg.RedisPrefix)
	case config.StoreSQLite:
		if kv, err = kvstore.OpenSQLite(a.cfg.SQLitePath); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
	a.closers = append(a.closers, func() {
		if err := kv.Close(); err != nil {
			a.lg.Warn("failed to close store", zap.Error(err))
		}
	})
	return kv, nil
}

// openBus returns nil for SyncNone.
func (a *App) openBus(ctx context.Context, client *redis.Client) (syncbus.Bus, error) {
	var bus syncbus.Bus
	switch a.cfg.SyncDriver {
	case config.SyncNone:
		return nil, nil
	case config.SyncMemory:
		bus = syncbus.NewInmem()
	case config.SyncRedis:
		rb, err := syncbus.NewRedis(ctx, a.lg, client, a.cfg.SyncChannel)
		if err != nil {
			return nil, err
		}
		bus = rb
	default:
		return nil, fmt.Errorf("unknown sync driver %q", a.cfg.SyncDriver)
	}
	a.closers = append(a.closers, func() { _ = bus.Close() })
	return bus, nil
}

// newProvider prefers a remote fxconvert server when one is configured.
// Rates are cached in the unwrapped store so cache writes are not
// announced to other contexts.
func (a *App) newProvider(durable kvstore.Store) rate.Provider {
	if a.cfg.RatesAPI != "" {
		return rate.NewAPIClient(a.lg, a.cfg.RatesAPI)
	}

	fallbackOpts := []rate.FallbackOption{rate.WithFallbackMetrics(a.Metrics)}
	if !a.cfg.RatesMockFallback {
		fallbackOpts = append(fallbackOpts, rate.WithoutMock())
	}
	fallback := rate.NewFallbackProvider(a.lg,
		[]rate.Source{rate.NewFrankfurterSource(a.lg, a.cfg.RatesURL)},
		fallbackOpts...,
	)

	cache := durable
	if cache == nil {
		cache = kvstore.NewMemory(0)
	}
	return rate.NewCachedProvider(a.lg, fallback, cache, a.cfg.RatesCacheTTL).WithMetrics(a.Metrics)
}

func (a *App) Registry() *currency.Registry {
	return a.registry
}

// NewSession opens a converter view on this context.
func (a *App) NewSession(opts ...converter.Option) *converter.Session {
	opts = append([]converter.Option{
		converter.WithRegistry(a.registry),
		converter.WithMetrics(a.Metrics),
	}, opts...)
	return converter.NewSession(a.lg, a.Tracker, a.History, favorites.NewController(a.Favorites), opts...)
}

// Server serves this context's rates over HTTP.
func (a *App) Server(opts ...web.Option) *web.Server {
	opts = append([]web.Option{
		web.WithPort(a.cfg.HTTPPort),
		web.WithAllowedOrigins(a.cfg.HTTPAllowedOrigins),
		web.WithRoutes(web.RatesRoutes(a.lg, a.Provider)),
	}, opts...)
	return web.NewServer(a.lg, opts...)
}

// Close releases everything in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
