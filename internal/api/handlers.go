package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/analytics"
	"github.com/priyamehta/screenscout/internal/engine"
	"github.com/priyamehta/screenscout/internal/events"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB
	maxQueryLen        = 500
)

type Handler struct {
	engine    *engine.Engine
	producer  *events.Producer
	slow      *observability.SlowSearchDetector
	analytics *analytics.Client
	logger    *zap.Logger
}

// NewHandler wires the HTTP surface. producer, slow and analytics may be
// nil when the corresponding backend is disabled.
func NewHandler(eng *engine.Engine, producer *events.Producer, slow *observability.SlowSearchDetector, an *analytics.Client, logger *zap.Logger) *Handler {
	return &Handler{
		engine:    eng,
		producer:  producer,
		slow:      slow,
		analytics: an,
		logger:    logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)

	req, err := h.parseSearchRequest(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Query) > maxQueryLen {
		req.Query = req.Query[:maxQueryLen]
	}

	start := time.Now()
	result := h.engine.Search(ctx, req.Query, req.Limit)
	result.RequestID = requestID

	h.afterSearch(ctx, req.Query, result, time.Since(start))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Mood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mood := r.URL.Query().Get("mood")
	if mood == "" {
		h.writeError(w, http.StatusBadRequest, "missing_mood", "Query parameter 'mood' is required")
		return
	}
	limit := parseLimit(r)

	start := time.Now()
	result := h.engine.SearchByMood(ctx, mood, limit)
	result.RequestID = RequestIDFromContext(ctx)

	h.afterSearch(ctx, "mood:"+mood, result, time.Since(start))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	window := r.URL.Query().Get("window")
	if window == "" {
		window = "week"
	}

	result := h.engine.Trending(ctx, window, parseLimit(r))
	result.RequestID = RequestIDFromContext(ctx)
	h.writeJSON(w, http.StatusOK, result)
}

// Stats reports per-tier search volumes from the analytics store.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		h.writeError(w, http.StatusServiceUnavailable, "analytics_disabled", "Analytics backend is not configured")
		return
	}

	since := 24 * time.Hour
	if s := r.URL.Query().Get("hours"); s != "" {
		if hours, err := strconv.Atoi(s); err == nil && hours > 0 && hours <= 24*30 {
			since = time.Duration(hours) * time.Hour
		}
	}

	breakdown, err := h.analytics.TierBreakdown(r.Context(), since)
	if err != nil {
		h.logger.Error("tier breakdown query failed", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "analytics_error", "Analytics store unavailable")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"window_hours": int(since.Hours()),
		"tiers":        breakdown,
	})
}

// afterSearch handles post-response telemetry: the slow-search detector
// and the Kafka event feed. Neither can fail the request.
func (h *Handler) afterSearch(ctx context.Context, query string, result *models.SearchResult, took time.Duration) {
	if h.slow != nil {
		h.slow.Intercept(ctx, query, result, took)
	}

	if h.producer != nil {
		event := &models.SearchEvent{
			EventType:      "search",
			QueryHash:      observability.HashQuery(query),
			Tier:           result.Tier,
			Strategy:       result.StrategyUsed,
			CandidateCount: result.TotalCandidatesConsidered,
			ResultCount:    len(result.Items),
			Confidence:     result.Confidence,
			Degraded:       result.Degraded,
			DurationMs:     float64(took.Milliseconds()),
			Timestamp:      time.Now().UTC(),
			TraceID:        observability.TraceIDFromContext(ctx),
		}
		if err := h.producer.PublishSearchEvent(ctx, event); err != nil {
			h.logger.Warn("search event publish failed", zap.Error(err))
		}
	}
}

func (h *Handler) parseSearchRequest(r *http.Request) (*searchRequest, error) {
	if r.Method == http.MethodPost {
		var req searchRequest
		limited := io.LimitReader(r.Body, maxRequestBodySize)
		if err := json.NewDecoder(limited).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	return &searchRequest{
		Query: r.URL.Query().Get("q"),
		Limit: parseLimit(r),
	}, nil
}

func parseLimit(r *http.Request) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil && limit > 0 {
			return limit
		}
	}
	return 0
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("writing json response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
