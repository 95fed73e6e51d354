// Package analytics persists search events to ClickHouse for offline
// analysis of tier usage, strategy effectiveness and slow searches.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
	"github.com/priyamehta/screenscout/internal/resilience"
)

type Client struct {
	conn   driver.Conn
	logger *zap.Logger
}

func NewClient(cfg config.ClickHouseConfig, logger *zap.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addresses,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(cfg.QueryTimeout.Seconds()),
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	// ClickHouse often comes up after the service in compose setups, so
	// retry the initial ping briefly before giving up.
	err = resilience.Retry(resilience.RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2,
	}, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		defer cancel()
		return conn.Ping(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	logger.Info("clickhouse client connected", zap.Strings("addresses", cfg.Addresses))

	return &Client{
		conn:   conn,
		logger: logger,
	}, nil
}

// EnsureTables creates the search_events table when it does not exist.
// Called once at startup.
func (c *Client) EnsureTables(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS search_events (
			event_type      LowCardinality(String),
			query_hash      String,
			tier            LowCardinality(String),
			strategy        LowCardinality(String),
			candidate_count UInt32,
			result_count    UInt32,
			confidence      UInt8,
			degraded        UInt8,
			duration_ms     Float64,
			trace_id        String,
			ts              DateTime
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(ts)
		ORDER BY (tier, ts)
		TTL ts + INTERVAL 90 DAY
	`
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating search_events table: %w", err)
	}
	return nil
}

// WriteSearchEvent inserts one event row. Implements
// observability.AnalyticsWriter.
func (c *Client) WriteSearchEvent(ctx context.Context, event *models.SearchEvent) error {
	ctx, span := observability.StartSpan(ctx, "ch.write_search_event",
		attribute.String("tier", event.Tier),
	)
	defer span.End()

	start := time.Now()

	degraded := uint8(0)
	if event.Degraded {
		degraded = 1
	}
	confidence := event.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	err := c.conn.Exec(ctx, `
		INSERT INTO search_events
			(event_type, query_hash, tier, strategy, candidate_count,
			 result_count, confidence, degraded, duration_ms, trace_id, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventType,
		event.QueryHash,
		event.Tier,
		event.Strategy,
		uint32(event.CandidateCount),
		uint32(event.ResultCount),
		uint8(confidence),
		degraded,
		event.DurationMs,
		event.TraceID,
		event.Timestamp,
	)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.CatalogRequestDuration.WithLabelValues("analytics_write", status).Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("inserting search event: %w", err)
	}
	return nil
}

// TierBreakdown returns per-tier search counts and latency over the last
// given window. Used by the operational report endpoint.
func (c *Client) TierBreakdown(ctx context.Context, since time.Duration) (map[string]TierStats, error) {
	ctx, span := observability.StartSpan(ctx, "ch.tier_breakdown")
	defer span.End()

	rows, err := c.conn.Query(ctx, `
		SELECT
			tier,
			count() AS searches,
			avg(duration_ms) AS avg_ms,
			quantile(0.95)(duration_ms) AS p95_ms,
			sum(degraded) AS degraded_count
		FROM search_events
		WHERE ts >= now() - INTERVAL ? SECOND
		GROUP BY tier`,
		int(since.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("querying tier breakdown: %w", err)
	}
	defer rows.Close()

	out := make(map[string]TierStats)
	for rows.Next() {
		var (
			tier     string
			searches uint64
			avgMs    float64
			p95Ms    float64
			degraded uint64
		)
		if err := rows.Scan(&tier, &searches, &avgMs, &p95Ms, &degraded); err != nil {
			return nil, fmt.Errorf("scanning tier row: %w", err)
		}
		out[tier] = TierStats{
			Searches:      searches,
			AvgDurationMs: avgMs,
			P95DurationMs: p95Ms,
			DegradedCount: degraded,
		}
	}
	return out, rows.Err()
}

type TierStats struct {
	Searches      uint64  `json:"searches"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	P95DurationMs float64 `json:"p95_duration_ms"`
	DegradedCount uint64  `json:"degraded_count"`
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
