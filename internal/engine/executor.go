package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/catalog"
	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

// executor runs a strategy plan against the gateway. Exact-title and
// person strategies run first and may short-circuit the broad phase;
// everything else fans out concurrently. A failing strategy is logged and
// dropped, never aborting its siblings.
type executor struct {
	gateway catalog.Gateway
	logger  *zap.Logger
}

// execOutcome carries everything the cascade needs from one execution.
type execOutcome struct {
	candidates []models.Candidate
	considered int
	// strategyUsed is the highest-priority strategy that contributed
	// at least one candidate.
	strategyUsed string
	// shortCircuited records that the broad phase was skipped.
	shortCircuited bool
	// failures counts strategies that returned an error.
	failures int
}

type strategyResult struct {
	index int
	items []models.Candidate
	err   error
}

// Execute runs the plan. shortCircuitAt is the number of exact-title
// matches that makes the broad phase redundant; the trending backstop
// still runs so the result keeps baseline popularity coverage.
func (e *executor) Execute(ctx context.Context, in *models.Intent, plan []models.Strategy, shortCircuitAt int) *execOutcome {
	out := &execOutcome{}

	var narrow, broad []models.Strategy
	for _, s := range plan {
		switch s.Kind {
		case models.StrategyExactTitle, models.StrategyPerson:
			narrow = append(narrow, s)
		default:
			broad = append(broad, s)
		}
	}

	collected := make([][]models.Candidate, 0, len(plan))
	usedPriority := -1
	record := func(s models.Strategy, items []models.Candidate, err error) {
		if err != nil {
			out.failures++
			observability.StrategyExecutions.WithLabelValues(s.Kind.String(), "error").Inc()
			e.logger.Warn("strategy failed, continuing with siblings",
				zap.String("kind", s.Kind.String()),
				zap.String("query", s.Query),
				zap.Error(err))
			return
		}
		observability.StrategyExecutions.WithLabelValues(s.Kind.String(), "ok").Inc()
		collected = append(collected, items)
		out.considered += len(items)
		if len(items) > 0 && s.Priority > usedPriority {
			usedPriority = s.Priority
			out.strategyUsed = s.Kind.String()
		}
	}

	for _, s := range narrow {
		items, err := e.runStrategy(ctx, s)
		record(s, items, err)
	}

	if shortCircuitAt > 0 && countExactMatches(collected, in.ExactTitleGuesses) >= shortCircuitAt {
		out.shortCircuited = true
		// Keep the backstop only.
		var backstop []models.Strategy
		for _, s := range broad {
			if s.Kind == models.StrategyTrendingFallback {
				backstop = append(backstop, s)
			}
		}
		broad = backstop
	}

	if len(broad) > 0 {
		results := make(chan strategyResult, len(broad))
		for i, s := range broad {
			go func(i int, s models.Strategy) {
				var items []models.Candidate
				var err error
				func() {
					defer func() {
						if r := recover(); r != nil {
							err = fmt.Errorf("strategy %s panicked: %v", s.Kind, r)
						}
					}()
					items, err = e.runStrategy(ctx, s)
				}()
				results <- strategyResult{index: i, items: items, err: err}
			}(i, s)
		}

		// Reassemble in plan order so ties and dedupe stay deterministic.
		ordered := make([]strategyResult, len(broad))
		for range broad {
			r := <-results
			ordered[r.index] = r
		}
		for i, s := range broad {
			record(s, ordered[i].items, ordered[i].err)
		}
	}

	for _, items := range collected {
		out.candidates = append(out.candidates, items...)
	}
	return out
}

// runStrategy issues the gateway calls for one strategy, paging up to the
// strategy's depth budget. Exact-title and person lookups take one page;
// a correct guess is on page one or nowhere.
func (e *executor) runStrategy(ctx context.Context, s models.Strategy) ([]models.Candidate, error) {
	switch s.Kind {
	case models.StrategyExactTitle:
		page, err := e.gateway.SearchByTitle(ctx, s.Query, 1)
		if err != nil {
			return nil, err
		}
		return page.Items, nil

	case models.StrategyPerson:
		page, err := e.gateway.SearchByPerson(ctx, s.Person, 1)
		if err != nil {
			return nil, err
		}
		return page.Items, nil

	case models.StrategyKeyword:
		return e.paged(ctx, s.Depth.Pages(), func(page int) (*models.CatalogPage, error) {
			return e.gateway.SearchByTitle(ctx, s.Query, page)
		})

	case models.StrategyGenreDiscover:
		return e.paged(ctx, s.Depth.Pages(), func(page int) (*models.CatalogPage, error) {
			return e.gateway.DiscoverByGenre(ctx, s.GenreID, page)
		})

	case models.StrategyTrendingFallback:
		page, err := e.gateway.Trending(ctx, s.Query)
		if err != nil {
			// Popular is the backstop's backstop.
			page, err = e.gateway.Popular(ctx, 1)
			if err != nil {
				return nil, err
			}
		}
		return page.Items, nil
	}
	return nil, nil
}

// paged fetches up to budget pages, stopping early on an empty page or
// the catalog's own last page. A mid-pagination error keeps what was
// already fetched.
func (e *executor) paged(ctx context.Context, budget int, fetch func(page int) (*models.CatalogPage, error)) ([]models.Candidate, error) {
	var all []models.Candidate
	for page := 1; page <= budget; page++ {
		p, err := fetch(page)
		if err != nil {
			if len(all) > 0 {
				return all, nil
			}
			return nil, err
		}
		all = append(all, p.Items...)
		if len(p.Items) == 0 || (p.TotalPages > 0 && page >= p.TotalPages) {
			break
		}
	}
	return all, nil
}

// countExactMatches counts distinct candidates whose title equals one of
// the intent's title guesses, ignoring case.
func countExactMatches(collected [][]models.Candidate, guesses []string) int {
	if len(guesses) == 0 {
		return 0
	}
	seen := make(map[int64]bool)
	count := 0
	for _, items := range collected {
		for _, c := range items {
			if seen[c.CatalogID] {
				continue
			}
			for _, guess := range guesses {
				if strings.EqualFold(c.Title, guess) {
					seen[c.CatalogID] = true
					count++
					break
				}
			}
		}
	}
	return count
}
