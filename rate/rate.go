// Package rate supplies exchange rate snapshots: an HTTP source for
// frankfurter.app, a fallback chain ending in built-in mock rates, a cache
// in front of it, and a Tracker holding the latest snapshot for a view.
package rate

import (
	"context"
	"fmt"
	"maps"

	"github.com/infigaming-com/go-fxconvert/errors"
)

const DefaultErrorMessage = "Failed to fetch exchange rates. Please try again later."

var (
	ErrRatesUnavailable = errors.NewError(errors.ErrCodeRatesUnavailable, "Failed to fetch exchange rates", nil)
	ErrRatesMalformed   = errors.NewError(errors.ErrCodeRatesMalformed, "malformed exchange rates", nil)
)

// Snapshot is a set of rates quoted against Base, whose own rate is 1.
// Snapshots handed out by providers are shared and must not be modified.
type Snapshot struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Timestamp int64              `json:"timestamp,omitempty"`

	// Source names where the rates came from. It is not serialized.
	Source string `json:"-"`
}

// RateOf is safe on a nil snapshot.
func (s *Snapshot) RateOf(code string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.Rates[code]
	return v, ok
}

func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Rates = maps.Clone(s.Rates)
	return &c
}

// Validate checks the base is quoted at 1 and every rate is positive.
func (s *Snapshot) Validate() error {
	if s == nil || s.Base == "" || len(s.Rates) == 0 {
		return errors.NewError(errors.ErrCodeRatesMalformed, "exchange rates are empty", nil)
	}
	if s.Rates[s.Base] != 1 {
		return errors.NewError(errors.ErrCodeRatesMalformed, fmt.Sprintf("base %s is not quoted at 1", s.Base), nil)
	}
	for code, v := range s.Rates {
		if !(v > 0) {
			return errors.NewError(errors.ErrCodeRatesMalformed, fmt.Sprintf("rate for %s is not positive", code), nil)
		}
	}
	return nil
}

// Provider is what views consume. Refresh bypasses any cache.
type Provider interface {
	Current(ctx context.Context) (*Snapshot, error)
	Refresh(ctx context.Context) (*Snapshot, error)
}

// Source is one upstream of rates.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Snapshot, error)
}
