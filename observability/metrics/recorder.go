// Package metrics records converter activity as OpenTelemetry instruments.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCached  = "cached"
)

// Recorder holds the pre-built instruments. A nil *Recorder is valid and
// records nothing, so components can take one unconditionally.
type Recorder struct {
	conversions       metric.Int64Counter
	favoriteMutations metric.Int64Counter
	storageFaults     metric.Int64Counter
	rateFetches       metric.Int64Counter
	rateFetchDuration metric.Float64Histogram
}

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}
	var err error

	if r.conversions, err = meter.Int64Counter("fxconvert.conversions",
		metric.WithDescription("Completed conversions"),
		metric.WithUnit("{conversion}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conversions counter: %w", err)
	}

	if r.favoriteMutations, err = meter.Int64Counter("fxconvert.favorites.mutations",
		metric.WithDescription("Accepted changes to the favorite set"),
		metric.WithUnit("{mutation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create favorites counter: %w", err)
	}

	if r.storageFaults, err = meter.Int64Counter("fxconvert.storage.faults",
		metric.WithDescription("Durable store faults recovered by a store"),
		metric.WithUnit("{fault}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create storage faults counter: %w", err)
	}

	if r.rateFetches, err = meter.Int64Counter("fxconvert.rates.fetches",
		metric.WithDescription("Exchange rate fetches by source and outcome"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate fetches counter: %w", err)
	}

	if r.rateFetchDuration, err = meter.Float64Histogram("fxconvert.rates.fetch.duration",
		metric.WithDescription("Exchange rate fetch latency"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate fetch histogram: %w", err)
	}

	return r, nil
}

// Noop returns a recorder backed by the OTel no-op meter.
func Noop() *Recorder {
	r, _ := NewRecorder(noop.NewMeterProvider().Meter("fxconvert"))
	return r
}

func (r *Recorder) Conversion(ctx context.Context, from, to string) {
	if r == nil {
		return
	}
	r.conversions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// FavoriteMutation counts an accepted add or remove, or a replace applied
// from another context.
func (r *Recorder) FavoriteMutation(ctx context.Context, op string) {
	if r == nil {
		return
	}
	r.favoriteMutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (r *Recorder) StorageFault(ctx context.Context, store string) {
	if r == nil {
		return
	}
	r.storageFaults.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}

func (r *Recorder) RateFetch(ctx context.Context, source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	r.rateFetches.Add(ctx, 1, attrs)
	r.rateFetchDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
