package rate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/request"
)

const (
	FrankfurterURL  = "https://api.frankfurter.app/latest?from=USD"
	FrankfurterName = "frankfurter.app"

	frankfurterTimeout = 10 * time.Second
	browserUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

type frankfurterSource struct {
	lg      *zap.Logger
	url     string
	options []request.Option
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// NewFrankfurterSource fetches from url, FrankfurterURL when empty. The
// response leaves out the base currency; it is added at rate 1.
func NewFrankfurterSource(lg *zap.Logger, url string, opts ...request.Option) Source {
	if url == "" {
		url = FrankfurterURL
	}
	return &frankfurterSource{
		lg:      lg,
		url:     url,
		options: opts,
	}
}

func (s *frankfurterSource) Name() string {
	return FrankfurterName
}

func (s *frankfurterSource) Fetch(ctx context.Context) (*Snapshot, error) {
	opts := append([]request.Option{
		request.WithLogger(s.lg),
		request.WithRequestTimeout(frankfurterTimeout),
		request.WithRequestHeaders(map[string]string{
			"User-Agent": browserUserAgent,
			"Accept":     "application/json",
		}),
	}, s.options...)

	status, body, err := request.Get(ctx, s.url, opts...)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeRatesUnavailable, err.Error(), err)
	}
	if status != http.StatusOK {
		return nil, errors.NewError(errors.ErrCodeRatesUnavailable, fmt.Sprintf("HTTP error! status: %d", status), nil)
	}

	var resp frankfurterResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewError(errors.ErrCodeRatesMalformed, "invalid exchange rate response: "+err.Error(), err)
	}

	rates := make(map[string]float64, len(resp.Rates)+1)
	for code, v := range resp.Rates {
		rates[code] = v
	}
	rates[resp.Base] = 1

	snapshot := &Snapshot{Base: resp.Base, Rates: rates, Source: FrankfurterName}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}
