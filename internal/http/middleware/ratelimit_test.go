package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/staffmatch/internal/http/middleware"
)

func newLimitedServer(t *testing.T, cfg middleware.RateConfig) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	limiter := middleware.NewRateLimiter(client, cfg)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	srv := newLimitedServer(t, middleware.RateConfig{Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	srv := newLimitedServer(t, middleware.RateConfig{Rate: 1, Burst: 2})

	client := &http.Client{}
	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("X-Client-ID", "same-caller")
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	require.Equal(t, http.StatusOK, statuses[0])
	require.Equal(t, http.StatusOK, statuses[1])
	require.Equal(t, http.StatusTooManyRequests, statuses[2])
	require.Equal(t, http.StatusTooManyRequests, statuses[3])
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	srv := newLimitedServer(t, middleware.RateConfig{Rate: 1, Burst: 1})

	client := &http.Client{}
	for _, id := range []string{"caller-a", "caller-b"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("X-Client-ID", id)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestRateLimiterDisabledWithoutConfig(t *testing.T) {
	limiter := middleware.NewRateLimiter(nil, middleware.RateConfig{Rate: 10, Burst: 10})
	require.Nil(t, limiter)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
