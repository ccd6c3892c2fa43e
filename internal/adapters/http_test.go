package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := normalizeHTTPConfig(HTTPOptions{Retries: 3, RetryDelayMs: 1})
	resp, err := doRequest(context.Background(), httpRequest{url: server.URL}, cfg)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestDoRequestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := normalizeHTTPConfig(HTTPOptions{Retries: 5, RetryDelayMs: 60_000})
	start := time.Now()
	_, err := doRequest(ctx, httpRequest{url: server.URL}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, int32(1), hits.Load())
}
