// Package resilience wraps upstream calls with circuit breaking and
// bounded retries so catalog or analytics outages stay contained.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/observability"
)

// NewCircuitBreaker builds a breaker for an upstream dependency. It trips
// after FailureThreshold consecutive failures and reports every state
// transition to the log and the breaker state gauge.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
	}
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.FailureThreshold
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("circuit breaker state change",
			zap.String("name", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
		observability.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// breakerStateValue maps breaker states onto the gauge scale used in
// dashboards: 0 closed, 1 half-open, 2 open.
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Retry runs fn up to MaxAttempts times with exponential backoff,
// returning the last error once attempts are exhausted.
func Retry(cfg RetryConfig, fn func() error) error {
	return RetryContext(context.Background(), cfg, fn)
}

// RetryContext is Retry with cancellation: a context that ends during a
// backoff wait aborts remaining attempts with ctx.Err().
func RetryContext(ctx context.Context, cfg RetryConfig, fn func() error) error {
	wait := cfg.InitialWait
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait = time.Duration(float64(wait) * cfg.Multiplier); wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	return fmt.Errorf("all %d retry attempts failed: %w", cfg.MaxAttempts, lastErr)
}
