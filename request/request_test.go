package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infigaming-com/go-fxconvert/errors"
	"github.com/infigaming-com/go-fxconvert/util"
)

func TestGet(t *testing.T) {
	var gotQuery, gotAgent, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		gotCorrelation = r.Header.Get(CorrelationIdHeader)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	t.Run("query, headers and status pass through", func(t *testing.T) {
		status, body, err := Get(context.Background(), srv.URL+"/latest?from=USD",
			WithLogger(zap.NewNop()),
			WithDebugEnabled(true),
			WithQueryParams(map[string]string{"to": "EUR"}),
			WithRequestHeaders(map[string]string{"User-Agent": "fxconvert-test"}),
		)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTeapot, status)
		assert.JSONEq(t, `{"ok":true}`, string(body))
		assert.Equal(t, "from=USD&to=EUR", gotQuery)
		assert.Equal(t, "fxconvert-test", gotAgent)
		assert.NotEmpty(t, gotCorrelation)
	})

	t.Run("correlation id from context", func(t *testing.T) {
		ctx := util.CorrelationIdToCtx(context.Background(), "corr-1")
		_, _, err := Get(ctx, srv.URL, WithLogger(zap.NewNop()))
		require.NoError(t, err)
		assert.Equal(t, "corr-1", gotCorrelation)
	})

	t.Run("explicit correlation id wins", func(t *testing.T) {
		ctx := util.CorrelationIdToCtx(context.Background(), "corr-1")
		_, _, err := Get(ctx, srv.URL, WithLogger(zap.NewNop()), WithCorrelationId(CorrelationIdHeader, "corr-2"))
		require.NoError(t, err)
		assert.Equal(t, "corr-2", gotCorrelation)
	})
}

func TestGet_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, _, err := Get(context.Background(), srv.URL,
		WithLogger(zap.NewNop()),
		WithRequestTimeout(50*time.Millisecond),
	)
	require.Error(t, err)
	assert.Equal(t, ErrCodeRequestTimeout, errors.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGet_Retry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			time.Sleep(100 * time.Millisecond)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	status, body, err := Get(context.Background(), srv.URL,
		WithLogger(zap.NewNop()),
		WithRequestTimeout(30*time.Millisecond),
		WithRetry(3, time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_NoRetryOnStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	status, _, err := Get(context.Background(), srv.URL, WithLogger(zap.NewNop()), WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGet_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := Get(context.Background(), url, WithLogger(zap.NewNop()), WithRetry(1, time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, ErrCodeFailedToSendRequest, errors.CodeOf(err))
	assert.True(t, isRetryableError(err))
}

func TestOptions(t *testing.T) {
	_, _, err := Get(context.Background(), "http://localhost", WithSlowRequestThreshold(0))
	assert.ErrorIs(t, err, ErrInvalidSlowRequestThreshold)

	_, _, err = Get(context.Background(), "://bad", WithLogger(zap.NewNop()))
	assert.Equal(t, ErrCodeFailedToCreateRequest, errors.CodeOf(err))

	assert.False(t, isRetryableError(nil))
}
