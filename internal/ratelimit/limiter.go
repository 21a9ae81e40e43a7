// Package ratelimit admits or rejects requests per caller using fixed windows.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// FixedWindow admits at most limit requests per caller in each window.
// Window reset and admission happen under one lock, so two concurrent
// requests can never both take the last slot.
type FixedWindow struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// NewFixedWindow creates a limiter. Defaults: 60 requests per minute.
func NewFixedWindow(limit int, period time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	return &FixedWindow{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Limit returns the per-window request ceiling.
func (f *FixedWindow) Limit() int { return f.limit }

// Window returns the window length.
func (f *FixedWindow) Window() time.Duration { return f.period }

// Allow records one request for callerID and reports whether it is admitted.
func (f *FixedWindow) Allow(callerID string) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	w, ok := f.windows[callerID]
	if !ok || now.Sub(w.start) >= f.period {
		w = &window{start: now}
		f.windows[callerID] = w
	}

	resetAt := w.start.Add(f.period)
	if w.count >= f.limit {
		return Decision{
			Allowed:    false,
			Limit:      f.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     f.limit,
		Remaining: f.limit - w.count,
		ResetAt:   resetAt,
	}
}

// Sweep drops windows that have already ended and returns how many were dropped.
func (f *FixedWindow) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	removed := 0
	for id, w := range f.windows {
		if now.Sub(w.start) >= f.period {
			delete(f.windows, id)
			removed++
		}
	}
	return removed
}

// Callers returns the number of tracked windows.
func (f *FixedWindow) Callers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}
