package rate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/kvstore"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
)

const (
	DefaultCacheKey = "fxconvert:rates:latest"
	DefaultCacheTTL = time.Hour
)

// CachedProvider serves Current from kv for ttl. Refresh always goes to
// the inner provider and replaces the cached snapshot. Mock snapshots are
// never cached so a recovered source is picked up on the next call.
type CachedProvider struct {
	lg      *zap.Logger
	inner   Provider
	kv      kvstore.Store
	key     string
	ttl     time.Duration
	metrics *metrics.Recorder
}

func NewCachedProvider(lg *zap.Logger, inner Provider, kv kvstore.Store, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		lg:    lg,
		inner: inner,
		kv:    kv,
		key:   DefaultCacheKey,
		ttl:   ttl,
	}
}

func (p *CachedProvider) WithMetrics(recorder *metrics.Recorder) *CachedProvider {
	p.metrics = recorder
	return p
}

func (p *CachedProvider) Current(ctx context.Context) (*Snapshot, error) {
	cached, err := kvstore.GetTyped[Snapshot](ctx, p.kv, p.key)
	if err == nil && cached.Validate() == nil {
		p.metrics.RateFetch(ctx, "cache", metrics.OutcomeCached, 0)
		cached.Source = "cache"
		return &cached, nil
	}
	if err != nil && !kvstore.IsNotFound(err) {
		p.lg.Warn("failed to read cached exchange rates", zap.Error(err))
	}

	snapshot, err := p.inner.Current(ctx)
	if err != nil {
		return nil, err
	}
	p.store(ctx, snapshot)
	return snapshot, nil
}

func (p *CachedProvider) Refresh(ctx context.Context) (*Snapshot, error) {
	snapshot, err := p.inner.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	p.store(ctx, snapshot)
	return snapshot, nil
}

func (p *CachedProvider) store(ctx context.Context, snapshot *Snapshot) {
	if snapshot.Source == MockSourceName {
		return
	}
	if err := kvstore.SetTyped(ctx, p.kv, p.key, snapshot, p.ttl); err != nil {
		p.lg.Warn("failed to cache exchange rates", zap.Error(err))
	}
}
