package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWindow_AllowsUpToLimit(t *testing.T) {
	w := NewWindow(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: unexpected error %v", i, err)
		}
	}
	if w.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", w.Remaining())
	}
}

func TestWindow_DeniesAfterWait(t *testing.T) {
	// Fixed clock: the window never slides, so the wait cannot help and
	// the second reservation attempt must fail.
	now := time.Unix(1000, 0)
	w := NewWindow(1, 50*time.Millisecond)
	w.now = func() time.Time { return now }

	ctx := context.Background()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	err := w.Acquire(ctx)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestWindow_RecoversAfterWindowSlides(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewWindow(2, time.Minute)
	w.now = func() time.Time { return now }

	ctx := context.Background()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Advance past the window; quota should be fully restored.
	now = now.Add(2 * time.Minute)
	if w.Remaining() != 2 {
		t.Errorf("expected 2 remaining after window slide, got %d", w.Remaining())
	}
	if err := w.Acquire(ctx); err != nil {
		t.Errorf("acquire after slide: %v", err)
	}
}

func TestWindow_WaitSucceedsWhenSlotFrees(t *testing.T) {
	w := NewWindow(1, 30*time.Millisecond)
	ctx := context.Background()

	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// Real clock: the slot expires within the window, so the blocked
	// acquire should succeed rather than return ErrRateLimited.
	start := time.Now()
	if err := w.Acquire(ctx); err != nil {
		t.Fatalf("second acquire should succeed after wait, got %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("second acquire should have waited for the window")
	}
}

func TestWindow_ContextCancellation(t *testing.T) {
	w := NewWindow(1, time.Minute)
	if err := w.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}
