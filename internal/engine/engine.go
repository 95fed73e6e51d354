package engine

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/catalog"
	"github.com/priyamehta/screenscout/internal/config"
	"github.com/priyamehta/screenscout/internal/intent"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

// exactMatchBoost lifts confidence when the top result carries the
// exact-title signal, up to the tier's cap.
const exactMatchBoost = 20

// Engine is the search orchestrator. Search and SearchByMood always
// return a well-formed result; every failure mode below them resolves to
// a degraded tier instead of an error.
type Engine struct {
	gateway  catalog.Gateway
	analyzer *intent.Analyzer
	cfg      config.SearchConfig
	logger   *zap.Logger
	now      func() time.Time
}

func New(gateway catalog.Gateway, analyzer *intent.Analyzer, cfg config.SearchConfig, logger *zap.Logger) *Engine {
	return &Engine{
		gateway:  gateway,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Search runs the full cascade for a free-text query. limit <= 0 takes
// the configured default page size.
func (e *Engine) Search(ctx context.Context, query string, limit int) *models.SearchResult {
	start := e.now()
	ctx, span := observability.StartSpan(ctx, "engine.search")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	limit = e.clampLimit(limit)

	res := e.runCascade(ctx, []tier{
		{
			name: TierPrimary,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				in := e.analyzer.Analyze(ctx, query)
				return e.runPipeline(ctx, in, limit, TierPrimary, intent.MaxConfidence)
			},
		},
		{
			name: TierHeuristic,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				in := e.analyzer.AnalyzeLocal(query)
				return e.runPipeline(ctx, in, limit, TierHeuristic, e.cfg.HeuristicConfidence)
			},
		},
		{
			name: TierEmergency,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				return e.runEmergency(ctx, limit)
			},
		},
	})

	e.finish(res, start)
	return res
}

// SearchByMood skips full analysis: the mood's pre-mapped genres feed
// the planner directly. Unknown moods fall through to trending.
func (e *Engine) SearchByMood(ctx context.Context, mood string, limit int) *models.SearchResult {
	start := e.now()
	ctx, span := observability.StartSpan(ctx, "engine.search_by_mood")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	limit = e.clampLimit(limit)
	in := &models.Intent{
		RawText:     mood,
		PrimaryMood: mood,
		GenreHints:  intent.GenresForMood(mood),
		Class:       models.ClassMoodDriven,
		Confidence:  e.cfg.HeuristicConfidence,
	}

	res := e.runCascade(ctx, []tier{
		{
			name: TierHeuristic,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				return e.runPipeline(ctx, in, limit, TierHeuristic, e.cfg.HeuristicConfidence)
			},
		},
		{
			name: TierEmergency,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				return e.runEmergency(ctx, limit)
			},
		},
	})

	e.finish(res, start)
	return res
}

// Trending surfaces the raw trending feed through the same never-failing
// result shape the other entry points use.
func (e *Engine) Trending(ctx context.Context, window string, limit int) *models.SearchResult {
	start := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	limit = e.clampLimit(limit)

	res := e.runCascade(ctx, []tier{
		{
			name: TierPrimary,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				page, err := e.gateway.Trending(ctx, window)
				if err != nil {
					return nil, err
				}
				return e.verbatimResult(page.Items, limit, TierPrimary, intent.MaxConfidence, false), nil
			},
		},
		{
			name: TierEmergency,
			run: func(ctx context.Context) (*models.SearchResult, error) {
				return e.runEmergency(ctx, limit)
			},
		},
	})

	e.finish(res, start)
	return res
}

// runPipeline is one complete plan → execute → dedupe → rank attempt.
func (e *Engine) runPipeline(ctx context.Context, in *models.Intent, limit int, tierName string, confidenceCap int) (*models.SearchResult, error) {
	plan := PlanStrategies(in, e.cfg.MaxStrategies)
	ex := &executor{gateway: e.gateway, logger: e.logger}

	out := ex.Execute(ctx, in, plan, e.cfg.ShortCircuitMatches)
	deduped := dedupeCandidates(out.candidates)
	rk := &ranker{now: e.now}
	ranked := rk.Rank(in, deduped, limit)

	confidence := in.Confidence
	if len(ranked) > 0 && hasSignal(ranked[0].MatchedSignals, "exact_title") {
		confidence += exactMatchBoost
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}
	if confidence < 0 {
		confidence = 0
	}

	strategyUsed := out.strategyUsed
	if strategyUsed == "" {
		strategyUsed = "none"
	}

	return &models.SearchResult{
		Items:                     ranked,
		Explanation:               buildExplanation(in, tierName, strategyUsed, len(ranked)),
		Confidence:                confidence,
		StrategyUsed:              strategyUsed,
		Tier:                      tierName,
		TotalCandidatesConsidered: out.considered,
		Degraded:                  tierName != TierPrimary,
	}, nil
}

// runEmergency bypasses analysis: one trending call, popular as its
// backstop, items passed through verbatim with a fixed low confidence.
func (e *Engine) runEmergency(ctx context.Context, limit int) (*models.SearchResult, error) {
	page, err := e.gateway.Trending(ctx, "week")
	if err != nil {
		page, err = e.gateway.Popular(ctx, 1)
		if err != nil {
			return nil, err
		}
	}
	return e.verbatimResult(page.Items, limit, TierEmergency, e.cfg.EmergencyConfidence, true), nil
}

// verbatimResult wraps raw catalog items without re-ranking; the feed's
// own order is the ranking.
func (e *Engine) verbatimResult(items []models.Candidate, limit int, tierName string, confidence int, degraded bool) *models.SearchResult {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	scored := make([]models.ScoredCandidate, 0, len(items))
	for _, c := range items {
		scored = append(scored, models.ScoredCandidate{
			Candidate: c,
			Score:     c.PopularityScore,
		})
	}
	return &models.SearchResult{
		Items:                     scored,
		Explanation:               buildExplanation(nil, tierName, "trending_fallback", len(scored)),
		Confidence:                confidence,
		StrategyUsed:              "trending_fallback",
		Tier:                      tierName,
		TotalCandidatesConsidered: len(scored),
		Degraded:                  degraded,
	}
}

func (e *Engine) finish(res *models.SearchResult, start time.Time) {
	elapsed := e.now().Sub(start)
	res.TookMs = elapsed.Milliseconds()

	status := "ok"
	if res.Degraded {
		status = "degraded"
	}
	observability.SearchRequestsTotal.WithLabelValues(res.Tier, status).Inc()
	observability.SearchRequestDuration.WithLabelValues(res.Tier, res.StrategyUsed, status).Observe(elapsed.Seconds())

	e.logger.Info("search completed",
		zap.String("tier", res.Tier),
		zap.String("strategy", res.StrategyUsed),
		zap.Int("results", len(res.Items)),
		zap.Int("confidence", res.Confidence),
		zap.Bool("degraded", res.Degraded),
		zap.String("took", strconv.FormatInt(res.TookMs, 10)+"ms"))
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.cfg.DefaultPageSize
	}
	if limit > e.cfg.MaxPageSize {
		limit = e.cfg.MaxPageSize
	}
	return limit
}

func hasSignal(signals []string, want string) bool {
	for _, s := range signals {
		if s == want {
			return true
		}
	}
	return false
}
