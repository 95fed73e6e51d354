package observability

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/models"
)

// SlowSearchDetector logs and records searches that exceed latency
// thresholds. Fast searches return immediately with no overhead.
type SlowSearchDetector struct {
	warningThreshold  time.Duration
	criticalThreshold time.Duration
	logger            *zap.Logger
	analyticsWriter   AnalyticsWriter
}

type AnalyticsWriter interface {
	WriteSearchEvent(ctx context.Context, event *models.SearchEvent) error
}

func NewSlowSearchDetector(warning, critical time.Duration, logger *zap.Logger, aw AnalyticsWriter) *SlowSearchDetector {
	return &SlowSearchDetector{
		warningThreshold:  warning,
		criticalThreshold: critical,
		logger:            logger,
		analyticsWriter:   aw,
	}
}

func (d *SlowSearchDetector) Intercept(ctx context.Context, query string, result *models.SearchResult, duration time.Duration) {
	if duration <= d.warningThreshold {
		return
	}

	traceID := TraceIDFromContext(ctx)
	severity := d.classifySeverity(duration)

	SlowSearchCounter.WithLabelValues(severity, result.Tier).Inc()

	d.logger.Warn("slow search detected",
		zap.String("trace_id", traceID),
		zap.String("query_hash", HashQuery(query)),
		zap.String("tier", result.Tier),
		zap.String("strategy", result.StrategyUsed),
		zap.Float64("duration_ms", float64(duration.Milliseconds())),
		zap.Int("candidates", result.TotalCandidatesConsidered),
		zap.Int("results", len(result.Items)),
		zap.Bool("degraded", result.Degraded),
		zap.String("severity", severity),
	)

	// Analytics writes happen off the request path.
	if d.analyticsWriter != nil {
		event := &models.SearchEvent{
			EventType:      "slow_search",
			QueryHash:      HashQuery(query),
			Tier:           result.Tier,
			Strategy:       result.StrategyUsed,
			CandidateCount: result.TotalCandidatesConsidered,
			ResultCount:    len(result.Items),
			Confidence:     result.Confidence,
			Degraded:       result.Degraded,
			DurationMs:     float64(duration.Milliseconds()),
			Timestamp:      time.Now().UTC(),
			TraceID:        traceID,
		}
		go func() {
			writeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := d.analyticsWriter.WriteSearchEvent(writeCtx, event); err != nil {
				d.logger.Error("failed to write slow search analytics",
					zap.String("trace_id", traceID),
					zap.Error(err),
				)
			}
		}()
	}
}

func (d *SlowSearchDetector) classifySeverity(dur time.Duration) string {
	if dur > d.criticalThreshold {
		return "critical"
	}
	if dur > d.warningThreshold {
		return "warning"
	}
	return "normal"
}

// HashQuery produces a short stable digest so raw query text never lands
// in logs or analytics rows.
func HashQuery(q string) string {
	h := sha256.Sum256([]byte(q))
	return fmt.Sprintf("%x", h[:8])
}
