// Package request is a small outbound HTTP helper: per-call options,
// correlation id propagation, a per-attempt timeout and retries on
// transient network errors.
package request

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/util"
)

const CorrelationIdHeader = "X-Correlation-ID"

var (
	httpClient *http.Client
	once       sync.Once
)

type requestOption struct {
	lg                   *zap.Logger
	client               *http.Client
	debugEnabled         bool
	queryParams          map[string]string
	requestHeaders       map[string]string
	requestBody          []byte
	correlationIdKey     string
	correlationId        string
	requestTimeout       time.Duration
	slowRequestThreshold time.Duration
	maxRetries           int
	retryBackoff         time.Duration
}

type Option interface {
	apply(option *requestOption) error
}

type optionFunc func(option *requestOption) error

func (f optionFunc) apply(option *requestOption) error {
	return f(option)
}

func defaultRequestOption() *requestOption {
	return &requestOption{
		lg:                   zap.L(),
		client:               getHttpClient(),
		queryParams:          map[string]string{},
		requestHeaders:       map[string]string{},
		correlationIdKey:     CorrelationIdHeader,
		requestTimeout:       3 * time.Second,
		slowRequestThreshold: 5 * time.Second,
		retryBackoff:         time.Second,
	}
}

func WithLogger(lg *zap.Logger) Option {
	return optionFunc(func(option *requestOption) error {
		option.lg = lg
		return nil
	})
}

// WithHTTPClient replaces the shared client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(option *requestOption) error {
		option.client = client
		return nil
	})
}

func WithDebugEnabled(debugEnabled bool) Option {
	return optionFunc(func(option *requestOption) error {
		option.debugEnabled = debugEnabled
		return nil
	})
}

func WithQueryParams(queryParams map[string]string) Option {
	return optionFunc(func(option *requestOption) error {
		maps.Copy(option.queryParams, queryParams)
		return nil
	})
}

func WithRequestHeaders(requestHeaders map[string]string) Option {
	return optionFunc(func(option *requestOption) error {
		maps.Copy(option.requestHeaders, requestHeaders)
		return nil
	})
}

func WithRequestBody(requestBody []byte) Option {
	return optionFunc(func(option *requestOption) error {
		option.requestBody = requestBody
		return nil
	})
}

func WithCorrelationId(correlationIdKey, correlationId string) Option {
	return optionFunc(func(option *requestOption) error {
		option.correlationIdKey = correlationIdKey
		option.correlationId = correlationId
		return nil
	})
}

// WithRequestTimeout bounds each attempt, not the whole call.
func WithRequestTimeout(requestTimeout time.Duration) Option {
	return optionFunc(func(option *requestOption) error {
		option.requestTimeout = requestTimeout
		return nil
	})
}

func WithSlowRequestThreshold(slowRequestThreshold time.Duration) Option {
	return optionFunc(func(option *requestOption) error {
		if slowRequestThreshold <= 0 {
			return ErrInvalidSlowRequestThreshold
		}
		option.slowRequestThreshold = slowRequestThreshold
		return nil
	})
}

// WithRetry retries transient failures up to maxRetries times. The n-th
// retry waits n times the backoff.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return optionFunc(func(option *requestOption) error {
		option.maxRetries = max(maxRetries, 0)
		if backoff > 0 {
			option.retryBackoff = backoff
		}
		return nil
	})
}

func getHttpClient() *http.Client {
	once.Do(func() {
		httpClient = &http.Client{}
	})
	return httpClient
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		errStr := e.Error()
		if strings.Contains(errStr, "connection refused") ||
			strings.Contains(errStr, "connection reset") ||
			strings.Contains(errStr, "i/o timeout") ||
			strings.Contains(errStr, "no such host") ||
			strings.Contains(errStr, "network is unreachable") {
			return true
		}
	}
	return false
}

// Request sends one request, retrying transient failures when asked to. A
// non-2xx status is not an error; callers inspect httpStatusCode.
func Request(ctx context.Context, method string, requestUrl string, options ...Option) (httpStatusCode int, responseBody []byte, err error) {
	start := time.Now()

	option := defaultRequestOption()
	for _, opt := range options {
		if err := opt.apply(option); err != nil {
			return 0, nil, err
		}
	}

	defer func() {
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("url", requestUrl),
			zap.Any("queryParams", option.queryParams),
			zap.Int("httpStatusCode", httpStatusCode),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			option.lg.Error("[HTTP-REQUEST-ERROR]", append(fields, zap.Error(err))...)
			return
		}
		if option.debugEnabled {
			option.lg.Debug("[HTTP-REQUEST-DEBUG]", append(fields, zap.ByteString("responseBody", responseBody))...)
		}
	}()

	maxAttempts := option.maxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * option.retryBackoff
			option.lg.Info("[HTTP-REQUEST-RETRY]",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Duration("backoff", backoff),
				zap.String("url", requestUrl),
			)

			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpStatusCode, responseBody, err = doRequest(ctx, method, requestUrl, option)
		if err == nil || !isRetryableError(err) || ctx.Err() != nil {
			return httpStatusCode, responseBody, err
		}

		option.lg.Warn("[HTTP-REQUEST-RETRYABLE-ERROR]",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.String("url", requestUrl),
		)
	}

	return httpStatusCode, responseBody, err
}

func doRequest(ctx context.Context, method string, requestUrl string, option *requestOption) (int, []byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, option.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if option.requestBody != nil {
		bodyReader = bytes.NewReader(option.requestBody)
	}
	req, err := http.NewRequestWithContext(timeoutCtx, method, requestUrl, bodyReader)
	if err != nil {
		return 0, nil, errors.NewError(ErrCodeFailedToCreateRequest, "failed to create request: "+err.Error(), err)
	}

	query := req.URL.Query()
	for k, v := range option.queryParams {
		query.Set(k, v)
	}
	req.URL.RawQuery = query.Encode()

	correlationId := option.correlationId
	if correlationId == "" {
		if fromCtx, err := util.CorrelationIdFromCtx(ctx); err == nil {
			correlationId = fromCtx
		} else {
			correlationId = util.NewUUID()
		}
	}
	if option.correlationIdKey != "" {
		req.Header.Set(option.correlationIdKey, correlationId)
	}
	for k, v := range option.requestHeaders {
		req.Header.Set(k, v)
	}

	requestStart := time.Now()
	resp, err := option.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return 0, nil, errors.NewError(ErrCodeRequestTimeout, "request timeout: "+err.Error(), err)
		}
		return 0, nil, errors.NewError(ErrCodeFailedToSendRequest, "failed to send request: "+err.Error(), err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.NewError(ErrCodeFailedToReadResponseBody, "failed to read response body: "+err.Error(), err)
	}

	if d := time.Since(requestStart); d > option.slowRequestThreshold {
		option.lg.Warn("[HTTP-REQUEST-SLOW]",
			zap.String("method", method),
			zap.String("url", requestUrl),
			zap.Int("httpStatusCode", resp.StatusCode),
			zap.Duration("duration", d),
		)
	}

	return resp.StatusCode, responseBody, nil
}

func Get(ctx context.Context, requestUrl string, options ...Option) (httpStatusCode int, responseBody []byte, err error) {
	return Request(ctx, http.MethodGet, requestUrl, options...)
}
