package rate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/observability/metrics"
)

type FallbackOption func(*FallbackProvider)

// WithoutMock makes the provider fail once every source has failed instead
// of serving MockSnapshot.
func WithoutMock() FallbackOption {
	return func(p *FallbackProvider) {
		p.mock = false
	}
}

func WithFallbackMetrics(recorder *metrics.Recorder) FallbackOption {
	return func(p *FallbackProvider) {
		p.metrics = recorder
	}
}

func WithClock(now func() time.Time) FallbackOption {
	return func(p *FallbackProvider) {
		p.now = now
	}
}

// FallbackProvider asks each source in order and returns the first
// snapshot. It keeps no state, so Current and Refresh behave the same.
type FallbackProvider struct {
	lg      *zap.Logger
	sources []Source
	mock    bool
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewFallbackProvider(lg *zap.Logger, sources []Source, opts ...FallbackOption) *FallbackProvider {
	p := &FallbackProvider{
		lg:      lg,
		sources: sources,
		mock:    true,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FallbackProvider) Current(ctx context.Context) (*Snapshot, error) {
	return p.fetch(ctx)
}

func (p *FallbackProvider) Refresh(ctx context.Context) (*Snapshot, error) {
	return p.fetch(ctx)
}

func (p *FallbackProvider) fetch(ctx context.Context) (*Snapshot, error) {
	var lastErr error

	for _, source := range p.sources {
		start := time.Now()
		snapshot, err := source.Fetch(ctx)
		if err == nil {
			p.metrics.RateFetch(ctx, source.Name(), metrics.OutcomeSuccess, time.Since(start))
			return p.stamp(snapshot), nil
		}

		p.metrics.RateFetch(ctx, source.Name(), metrics.OutcomeFailure, time.Since(start))
		p.lg.Warn("failed to fetch exchange rates", zap.String("source", source.Name()), zap.Error(err))
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if p.mock {
		if lastErr != nil {
			p.lg.Warn("all rate sources failed, using mock rates", zap.Error(lastErr))
		}
		p.metrics.RateFetch(ctx, MockSourceName, metrics.OutcomeSuccess, 0)
		return p.stamp(MockSnapshot()), nil
	}

	if lastErr == nil {
		return nil, ErrRatesUnavailable
	}
	if errors.CodeOf(lastErr) == 0 {
		return nil, errors.NewError(errors.ErrCodeRatesUnavailable, lastErr.Error(), lastErr)
	}
	return nil, lastErr
}

func (p *FallbackProvider) stamp(s *Snapshot) *Snapshot {
	s.Timestamp = p.now().UnixMilli()
	return s
}
