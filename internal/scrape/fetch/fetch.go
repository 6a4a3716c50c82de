// Package fetch performs single-source HTTP requests under a shared
// retry/backoff/rate-limit policy. Fetch never returns an error: every outcome
// is a domain.RawFetchResult.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jobmonitor-engine/internal/domain"
)

const maxBodyBytes = 10 << 20

// Policy is the retry policy shared by every source.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
	// Jitter adds up to Jitter*delay on top of each backoff delay.
	Jitter float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		AttemptTimeout: 15 * time.Second,
		Jitter:         0.2,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = d.AttemptTimeout
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Backoff returns the delay before the retry following attempt n (0-based):
// min(base*2^n, max), before jitter.
func (p Policy) Backoff(n int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(n))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

type Client struct {
	hc      *http.Client
	policy  Policy
	headers http.Header
	log     zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithRand replaces the jitter source; fn returns a value in [0,1).
func WithRand(fn func() float64) Option { return func(c *Client) { c.rand = fn } }

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

func New(p Policy, opts ...Option) *Client {
	c := &Client{
		hc:     &http.Client{},
		policy: p.withDefaults(),
		headers: http.Header{
			"User-Agent":      {"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
			"Accept":          {"application/json, text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.9"},
		},
		log:   zerolog.Nop(),
		sleep: sleepCtx,
		rand:  rand.Float64,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Policy() Policy { return c.policy }

// Fetch requests q.URL for one source. lim may be nil.
func (c *Client) Fetch(ctx context.Context, sourceID string, q domain.Query, lim *rate.Limiter) domain.RawFetchResult {
	res := domain.RawFetchResult{SourceID: sourceID, Query: q, Status: domain.FetchFailure}

	if !validURL(q.URL) {
		res.Err = domain.NewSourceError(sourceID, domain.ClassPermanent, fmt.Errorf("malformed url for %s", q.Label))
		c.log.Error().Str("source", sourceID).Str("query", q.Label).Msg("descriptor has no usable url")
		return res
	}

	var lastErr *domain.SourceError
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				lastErr = cancelled(ctx, sourceID, err)
				break
			}
		}

		res.Attempts++
		body, retryAfter, serr := c.attempt(ctx, sourceID, q.URL)
		if serr == nil {
			res.Payload = body
			res.Status = domain.FetchSuccess
			res.Err = nil
			return res
		}
		lastErr = serr

		if ctx.Err() != nil {
			lastErr = cancelled(ctx, sourceID, ctx.Err())
			break
		}
		if !serr.Retryable() || attempt == c.policy.MaxAttempts-1 {
			break
		}

		delay := c.delay(attempt, retryAfter)
		c.log.Warn().
			Str("source", sourceID).
			Str("query", q.Label).
			Int("attempt", attempt+1).
			Int("max_attempts", c.policy.MaxAttempts).
			Dur("retry_in", delay).
			Str("reason", serr.Reason).
			Msg("fetch failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			lastErr = cancelled(ctx, sourceID, err)
			break
		}
	}

	lastErr.Attempts = res.Attempts
	res.Err = lastErr
	c.log.Error().
		Str("source", sourceID).
		Str("query", q.Label).
		Int("attempts", res.Attempts).
		Str("class", string(lastErr.Class)).
		Msg(lastErr.Reason)
	return res
}

func (c *Client) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > c.policy.MaxDelay {
			return c.policy.MaxDelay
		}
		return retryAfter
	}
	d := c.policy.Backoff(attempt)
	if c.policy.Jitter > 0 {
		d += time.Duration(c.rand() * c.policy.Jitter * float64(d))
	}
	return d
}

// attempt performs one request under its own timeout. retryAfter is set only
// for HTTP 429 responses carrying a usable Retry-After header.
func (c *Client) attempt(ctx context.Context, sourceID, rawURL string) ([]byte, time.Duration, *domain.SourceError) {
	actx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, domain.NewSourceError(sourceID, domain.ClassPermanent, fmt.Errorf("build request: %w", err))
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, 0, domain.NewSourceError(sourceID, domain.ClassTransient, fmt.Errorf("timeout after %s", c.policy.AttemptTimeout))
		}
		return nil, 0, domain.NewSourceError(sourceID, domain.ClassTransient, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, 0, domain.NewSourceError(sourceID, domain.ClassTransient, fmt.Errorf("read body: %w", redact(err)))
		}
		return body, 0, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	serr := domain.NewSourceError(sourceID, Classify(resp.StatusCode), fmt.Errorf("HTTP %d", resp.StatusCode))
	serr.StatusCode = resp.StatusCode

	var retryAfter time.Duration
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return nil, retryAfter, serr
}

// Classify maps an HTTP status to an error class: 429 and 5xx are transient,
// everything else that is not 2xx is permanent.
func Classify(status int) domain.ErrorClass {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return domain.ClassTransient
	default:
		return domain.ClassPermanent
	}
}

// ParseRetryAfter accepts delta-seconds or an HTTP-date. Zero means absent
// or unusable.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func cancelled(ctx context.Context, sourceID string, err error) *domain.SourceError {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return domain.NewSourceError(sourceID, domain.ClassTimeout, fmt.Errorf("run cancelled: %w", err))
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// redact strips the query string from url errors; API keys travel there.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		u := ue.URL
		if i := strings.IndexByte(u, '?'); i >= 0 {
			u = u[:i]
		}
		return fmt.Errorf("%s %s: %w", ue.Op, u, ue.Err)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
