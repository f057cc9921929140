package rate

import (
	"context"
	"time"

	"github.com/guardkit/guardkit/internal/store"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	APIMaxRequests  int
	APIWindow       time.Duration
	AuthMaxRequests int
	AuthWindow      time.Duration
}

// Result is the outcome of one budget check. Remaining is clamped at zero so
// callers can render it directly into X-RateLimit-Remaining.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, rounded up,
// never below 1 for a rejected request.
func (r Result) RetryAfter(now time.Time) int {
	secs := int((r.ResetAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter enforces per-identifier request budgets with independent ceilings for
// sensitive (auth family) and general API endpoints.
type Limiter struct {
	counters store.CounterStore
	config   Config
}

// New creates a [Limiter] backed by the given counter store.
func New(counters store.CounterStore, cfg Config) *Limiter {
	return &Limiter{
		counters: counters,
		config:   cfg,
	}
}

// Check counts the request against the identifier's current window and reports
// whether it is within budget. Counting happens on allowed and rejected
// requests alike; a rejected request still consumes nothing extra because the
// window is already over its ceiling.
func (l *Limiter) Check(ctx context.Context, identifier string, sensitive bool) (Result, error) {
	limit := l.config.APIMaxRequests
	window := l.config.APIWindow
	key := "rg:" + identifier
	if sensitive {
		limit = l.config.AuthMaxRequests
		window = l.config.AuthWindow
		key = "ra:" + identifier
	}

	w, err := l.counters.Incr(ctx, key, window)
	if err != nil {
		return Result{}, err
	}

	remaining := limit - int(w.Count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.Count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}
