package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmonitor-engine/internal/domain"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return nil
}

func newTestClient(rec *sleepRecorder, p Policy) *Client {
	return New(p, WithSleep(rec.sleep), WithRand(func() float64 { return 0 }))
}

func query(u string) domain.Query { return domain.Query{URL: u, Label: "test"} }

func TestFetchSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	rec := &sleepRecorder{}
	res := newTestClient(rec, DefaultPolicy()).Fetch(context.Background(), "src", query(ts.URL), nil)

	require.True(t, res.OK())
	assert.Equal(t, `{"ok":true}`, string(res.Payload))
	assert.Equal(t, 1, res.Attempts)
	assert.Nil(t, res.Err)
	assert.Empty(t, rec.delays)
}

func TestFetchServerErrorExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, AttemptTimeout: time.Second}
	res := newTestClient(rec, p).Fetch(context.Background(), "src", query(ts.URL), nil)

	assert.False(t, res.OK())
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, res.Attempts)
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.ClassTransient, res.Err.Class)
	assert.Equal(t, 500, res.Err.StatusCode)
	assert.Equal(t, 3, res.Err.Attempts)
	// no sleep after the final attempt
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestFetchBackoffSpacingRealClock(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p := Policy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second, AttemptTimeout: time.Second, Jitter: 0.5}
	res := New(p).Fetch(context.Background(), "src", query(ts.URL), nil)

	require.False(t, res.OK())
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), p.Backoff(i-1))
	}
}

func TestFetchPermanentErrorNoRetry(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	rec := &sleepRecorder{}
	res := newTestClient(rec, DefaultPolicy()).Fetch(context.Background(), "src", query(ts.URL), nil)

	assert.Equal(t, int32(1), hits.Load())
	require.NotNil(t, res.Err)
	assert.Equal(t, domain.ClassPermanent, res.Err.Class)
	assert.Equal(t, 403, res.Err.StatusCode)
	assert.Empty(t, rec.delays)
}

func TestFetchMalformedURL(t *testing.T) {
	rec := &sleepRecorder{}
	for _, u := range []string{"", "not a url", "ftp://example.com/x", "/relative"} {
		res := newTestClient(rec, DefaultPolicy()).Fetch(context.Background(), "src", query(u), nil)
		require.NotNil(t, res.Err, u)
		assert.Equal(t, domain.ClassPermanent, res.Err.Class, u)
		assert.Equal(t, 0, res.Attempts, u)
	}
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	rec := &sleepRecorder{}
	res := newTestClient(rec, DefaultPolicy()).Fetch(context.Background(), "src", query(ts.URL), nil)

	require.True(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{4 * time.Second}, rec.delays)
}

func TestFetch429WithoutHintUsesBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, AttemptTimeout: time.Second}
	res := newTestClient(rec, p).Fetch(context.Background(), "src", query(ts.URL), nil)

	require.NotNil(t, res.Err)
	assert.Equal(t, domain.ClassTransient, res.Err.Class)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.delays)
}

func TestFetchAttemptTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, AttemptTimeout: 30 * time.Millisecond}
	res := newTestClient(rec, p).Fetch(context.Background(), "src", query(ts.URL), nil)

	require.NotNil(t, res.Err)
	assert.Equal(t, domain.ClassTransient, res.Err.Class)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.Err.Reason, "timeout")
}

func TestFetchRunCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(DefaultPolicy(), WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))
	res := c.Fetch(ctx, "src", query(ts.URL), nil)

	require.NotNil(t, res.Err)
	assert.Equal(t, domain.ClassTimeout, res.Err.Class)
	assert.Equal(t, 1, res.Attempts)
}

func TestBackoffCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 5*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(30))
}

func TestJitterNeverShortensDelay(t *testing.T) {
	c := New(Policy{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: 0.5}, WithRand(func() float64 { return 0.99 }))
	d := c.delay(1, 0)
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.Less(t, d, 3*time.Second)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.ClassTransient, Classify(429))
	assert.Equal(t, domain.ClassTransient, Classify(500))
	assert.Equal(t, domain.ClassTransient, Classify(503))
	assert.Equal(t, domain.ClassPermanent, Classify(404))
	assert.Equal(t, domain.ClassPermanent, Classify(401))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-3", now))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon", now))
	date := now.Add(30 * time.Second).Format(http.TimeFormat)
	assert.Equal(t, 30*time.Second, ParseRetryAfter(date, now))
}
