package httpx

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

func noSleep(context.Context, time.Duration) error { return nil }

func TestTransportRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{RetryMax: 3, sleep: noSleep}}

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, GetJSON(context.Background(), client, srv.URL, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransportGivesUpAfterRetryMax(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{RetryMax: 2, sleep: noSleep}}

	err := GetJSON(context.Background(), client, srv.URL, &struct{}{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{RetryMax: 3, sleep: noSleep}}

	err := GetJSON(context.Background(), client, srv.URL, &struct{}{})

	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportSetsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Options{UserAgent: "renamer-test", RequestsPerSecond: 100})
	require.NoError(t, GetJSON(context.Background(), client, srv.URL, &struct{}{}))
	assert.Equal(t, "renamer-test", ua)
}

func TestBackoffDoubles(t *testing.T) {
	tr := &Transport{Backoff: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, tr.backoff(0))
	assert.Equal(t, 400*time.Millisecond, tr.backoff(2))
}
