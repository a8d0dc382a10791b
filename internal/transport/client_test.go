package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfdaycarelist/directory/pkg/errors"
)

func newTestClient(source string, opts ...Option) (*Client, *[]time.Duration) {
	c := New(source, opts...)
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient("licensing", WithRetries(3, 10*time.Millisecond))
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GetJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
	// Two backoffs between the three attempts.
	assert.Len(t, *sleeps, 2)
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := newTestClient("places", WithRetries(3, time.Millisecond))
	err := c.GetJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.False(t, errors.IsTransient(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSONRetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := newTestClient("reviews", WithRetries(2, time.Millisecond))
	err := c.GetJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDelayAppliedEveryCall(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, sleeps := newTestClient("licensing", WithDelay(time.Second))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.GetJSON(context.Background(), srv.URL, nil))
	}
	require.Len(t, *sleeps, 3)
	for _, d := range *sleeps {
		assert.Equal(t, time.Second, d)
	}
}

func TestPostJSONSendsBodyAndAuth(t *testing.T) {
	t.Parallel()

	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"count": 1}`))
	}))
	defer srv.Close()

	c, _ := newTestClient("reviews", WithAuth(&BearerAuth{}, "secret-token"))
	var out struct {
		Count int `json:"count"`
	}
	err := c.PostJSON(context.Background(), srv.URL, map[string]string{"q": "daycare"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, 1, out.Count)
}

func TestContextCancellationStopsRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New("licensing", WithRetries(5, time.Millisecond))
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	err := c.GetJSON(ctx, srv.URL, nil)
	require.ErrorIs(t, err, context.Canceled)
}
