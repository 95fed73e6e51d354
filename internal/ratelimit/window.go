// Package ratelimit implements the sliding-window request quota applied
// to catalog gateway calls.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a call is still denied after waiting
// one full window for the quota to free up. Callers treat it as a signal
// to proceed with whatever data they already have.
var ErrRateLimited = errors.New("rate limit exceeded")

// Window grants at most `limit` acquisitions per sliding `window`.
// A denied Acquire blocks until the oldest in-window timestamp expires,
// but never longer than one window; a second denial surfaces
// ErrRateLimited instead of blocking again.
type Window struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	stamps []time.Time
}

func NewWindow(limit int, window time.Duration) *Window {
	return &Window{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Acquire reserves one slot, waiting at most one window reset. Returns
// nil on success, ErrRateLimited when the quota is still exhausted after
// the wait, or ctx.Err() if the context ends first.
func (w *Window) Acquire(ctx context.Context) error {
	if wait, ok := w.tryReserve(); !ok {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if _, ok := w.tryReserve(); !ok {
			return ErrRateLimited
		}
	}
	return nil
}

// tryReserve records an acquisition if the quota allows, or reports how
// long until the oldest in-window slot expires.
func (w *Window) tryReserve() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	// Drop expired timestamps in place.
	live := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}
	w.stamps = live

	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return 0, true
	}

	wait := w.stamps[0].Sub(cutoff)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// Remaining reports how many acquisitions the current window still allows.
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.window)
	live := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			live++
		}
	}
	if live >= w.limit {
		return 0
	}
	return w.limit - live
}
