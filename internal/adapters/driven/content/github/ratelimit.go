package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Quota defaults and the headers GitHub reports them in.
const (
	// GitHubRateLimit is the authenticated hourly quota assumed until the
	// first response says otherwise.
	GitHubRateLimit = 5000

	// ReadRate paces loads, listings and permission checks (~4300/hour).
	ReadRate = 1.2

	// SaveReserve is the part of the remaining quota kept for commits.
	// Reads wait for the reset once remaining drops below it; saves may
	// spend it, so unsaved edits can still be written when polling has
	// used up the rest.
	SaveReserve = 100

	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
)

// saveRate paces commits separately from reads so a save never queues
// behind a run of external-change checks. GitHub asks for at most about
// one content-creating request per second.
var saveRate = rate.Every(time.Second)

// Op classifies a request for rate limiting.
type Op int

const (
	OpRead Op = iota
	OpSave
)

// RateLimiter paces requests with a token bucket per Op and honours the
// quota GitHub reports in response headers.
type RateLimiter struct {
	reads *rate.Limiter
	saves *rate.Limiter

	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
}

// NewRateLimiter returns a limiter with the default read and save pacing.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithRate(rate.Limit(ReadRate), 1)
}

// NewRateLimiterWithRate sets the read bucket; saves keep their own pacing
// unless reads are unlimited, in which case saves are too.
func NewRateLimiterWithRate(limit rate.Limit, burst int) *RateLimiter {
	saves := rate.NewLimiter(saveRate, 1)
	if limit == rate.Inf {
		saves = rate.NewLimiter(rate.Inf, 1)
	}
	return &RateLimiter{
		reads:     rate.NewLimiter(limit, burst),
		saves:     saves,
		remaining: GitHubRateLimit,
		limit:     GitHubRateLimit,
	}
}

// Wait blocks until a read may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.WaitFor(ctx, OpRead)
}

// WaitFor blocks until a request of kind op may be sent: its bucket has a
// token and, for reads, the reported quota is above SaveReserve or has
// reset. Saves only wait for the reset when the quota is fully spent.
func (r *RateLimiter) WaitFor(ctx context.Context, op Op) error {
	bucket, floor := r.reads, SaveReserve
	if op == OpSave {
		bucket, floor = r.saves, 1
	}
	if err := bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	exhausted := r.remaining < floor && time.Now().Before(r.resetTime)
	reset := r.resetTime
	r.mu.Unlock()
	if !exhausted {
		return nil
	}

	timer := time.NewTimer(time.Until(reset))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromResponse records the quota headers of resp, ignoring any that
// are missing or malformed.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}
	h := resp.Header

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, err := strconv.Atoi(h.Get(HeaderRateRemaining)); err == nil {
		r.remaining = v
	}
	if v, err := strconv.Atoi(h.Get(HeaderRateLimit)); err == nil {
		r.limit = v
	}
	if v, err := strconv.ParseInt(h.Get(HeaderRateReset), 10, 64); err == nil {
		r.resetTime = time.Unix(v, 0)
	}
}

// Quota returns the last reported remaining requests, limit and reset time.
func (r *RateLimiter) Quota() (remaining, limit int, reset time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining, r.limit, r.resetTime
}

func (r *RateLimiter) Remaining() int {
	remaining, _, _ := r.Quota()
	return remaining
}

func (r *RateLimiter) Limit() int {
	_, limit, _ := r.Quota()
	return limit
}

func (r *RateLimiter) ResetTime() time.Time {
	_, _, reset := r.Quota()
	return reset
}
