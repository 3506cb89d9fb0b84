package recgov

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(Options{
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
		Retries:       retries,
		RetryInterval: time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok": true}`))
	}), 2)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.get(context.Background(), "/thing", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterRetryBudget(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}), 1)

	err := client.get(context.Background(), "/thing", nil, &struct{}{})
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "slow down")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}), 3)

	err := client.get(context.Background(), "/missing", nil, &struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientReportsMalformedBodyAsParseError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}), 2)

	err := client.get(context.Background(), "/thing", nil, &struct{}{})
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestSummarizeBodyTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	out := summarizeBody(long)
	assert.Len(t, out, 183)
	assert.Equal(t, "ok", summarizeBody([]byte("  ok \n")))
}
