package mangadex

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Rate limit headers sent by MangaDex on every API response.
const (
	headerRateLimitLimit      = "X-RateLimit-Limit"
	headerRateLimitRemaining  = "X-RateLimit-Remaining"
	headerRateLimitRetryAfter = "X-RateLimit-Retry-After"
)

// rateLimitPadding is added to the advertised reset instant, which only has
// second precision.
const rateLimitPadding = time.Second

// rateLimiter parks route buckets whose quota is exhausted.
type rateLimiter struct {
	mu     sync.Mutex
	parked map[string]time.Time
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

func newRateLimiter(sleep func(context.Context, time.Duration) error) *rateLimiter {
	return &rateLimiter{
		parked: make(map[string]time.Time),
		now:    time.Now,
		sleep:  sleep,
	}
}

// wait blocks until bucket is open or ctx is done.
func (r *rateLimiter) wait(ctx context.Context, bucket string) error {
	r.mu.Lock()
	until, ok := r.parked[bucket]
	now := r.now()
	if ok && !until.After(now) {
		delete(r.parked, bucket)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.sleep(ctx, until.Sub(now))
}

// observe parks bucket when the response says the quota is used up.
func (r *rateLimiter) observe(bucket string, resp *http.Response) {
	if resp.StatusCode == http.StatusTooManyRequests {
		return
	}
	if resp.Header.Get(headerRateLimitRemaining) != "0" {
		return
	}
	until, ok := retryAfter(resp.Header, r.now())
	if !ok {
		return
	}

	r.mu.Lock()
	r.parked[bucket] = until
	r.mu.Unlock()
}

// retryAfter reads the reset instant from X-RateLimit-Retry-After (a unix
// timestamp), falling back to the standard Retry-After seconds header.
func retryAfter(h http.Header, now time.Time) (time.Time, bool) {
	if v := h.Get(headerRateLimitRetryAfter); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(ts, 0).Add(rateLimitPadding), true
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return now.Add(time.Duration(secs) * time.Second), true
		}
		if t, err := http.ParseTime(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
