package rate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/request"
)

// Response is the body of the rates endpoint.
type Response struct {
	Success bool      `json:"success"`
	Data    *Snapshot `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// APIClient is a Provider backed by a remote rates endpoint.
type APIClient struct {
	lg      *zap.Logger
	url     string
	now     func() time.Time
	options []request.Option
}

// NewAPIClient targets baseURL + "/api/rates".
func NewAPIClient(lg *zap.Logger, baseURL string, opts ...request.Option) *APIClient {
	return &APIClient{
		lg:      lg,
		url:     strings.TrimRight(baseURL, "/") + "/api/rates",
		now:     time.Now,
		options: opts,
	}
}

func (c *APIClient) Current(ctx context.Context) (*Snapshot, error) {
	return c.get(ctx, nil)
}

// Refresh adds a cache-busting refresh parameter.
func (c *APIClient) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.get(ctx, map[string]string{
		"refresh": strconv.FormatInt(c.now().UnixMilli(), 10),
	})
}

func (c *APIClient) get(ctx context.Context, query map[string]string) (*Snapshot, error) {
	opts := append([]request.Option{request.WithLogger(c.lg)}, c.options...)
	if query != nil {
		opts = append(opts,
			request.WithQueryParams(query),
			request.WithRequestHeaders(map[string]string{"Cache-Control": "no-store"}),
		)
	}

	_, body, err := request.Get(ctx, c.url, opts...)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeRatesUnavailable, err.Error(), err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewError(errors.ErrCodeRatesMalformed, "invalid rates response: "+err.Error(), err)
	}
	if !resp.Success || resp.Data == nil {
		msg := resp.Error
		if msg == "" {
			msg = ErrRatesUnavailable.Message
		}
		return nil, errors.NewError(errors.ErrCodeRatesUnavailable, msg, nil)
	}
	resp.Data.Source = c.url
	return resp.Data, nil
}
