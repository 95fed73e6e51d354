// Package engine plans retrieval strategies from a structured Intent,
// executes them against the catalog gateway, and merges, ranks and
// explains the results behind a never-failing fallback cascade.
package engine

import (
	"strings"

	"github.com/priyamehta/screenscout/internal/models"
)

// Strategy priorities. Larger runs earlier and wins strategy attribution
// when several strategies contribute results.
const (
	priorityExactTitle      = 100
	priorityPerson          = 90
	priorityKeywordCombined = 80
	priorityKeyword         = 70
	priorityGenreDiscover   = 60
	priorityTrending        = 10
)

const (
	maxTitleGuesses      = 3
	maxIndividualKeyword = 3
	maxCombinedKeywords  = 5
)

// PlanStrategies maps an Intent to an ordered execution plan, highest
// priority first. The plan is bounded by maxStrategies; the trending
// backstop always survives the cut.
func PlanStrategies(in *models.Intent, maxStrategies int) []models.Strategy {
	if maxStrategies < 2 {
		maxStrategies = 2
	}

	var plan []models.Strategy

	guesses := in.ExactTitleGuesses
	if len(guesses) > maxTitleGuesses {
		guesses = guesses[:maxTitleGuesses]
	}
	for _, guess := range guesses {
		plan = append(plan, models.Strategy{
			Kind:     models.StrategyExactTitle,
			Query:    guess,
			Depth:    models.DepthShallow,
			Priority: priorityExactTitle,
		})
	}

	for _, person := range in.Entities.People {
		plan = append(plan, models.Strategy{
			Kind:     models.StrategyPerson,
			Person:   person,
			Depth:    models.DepthShallow,
			Priority: priorityPerson,
		})
	}

	if combined := combinedQuery(in); combined != "" {
		plan = append(plan, models.Strategy{
			Kind:     models.StrategyKeyword,
			Query:    combined,
			Depth:    models.DepthDeep,
			Priority: priorityKeywordCombined,
		})
	}
	for i, kw := range in.Keywords {
		if i >= maxIndividualKeyword {
			break
		}
		plan = append(plan, models.Strategy{
			Kind:     models.StrategyKeyword,
			Query:    kw,
			Depth:    models.DepthShallow,
			Priority: priorityKeyword,
		})
	}

	for _, genreID := range in.GenreHints {
		plan = append(plan, models.Strategy{
			Kind:     models.StrategyGenreDiscover,
			GenreID:  genreID,
			Depth:    genreDepth(in.Class),
			Priority: priorityGenreDiscover,
		})
	}

	// The backstop always runs, so the cut leaves room for it.
	if len(plan) > maxStrategies-1 {
		plan = plan[:maxStrategies-1]
	}
	plan = append(plan, models.Strategy{
		Kind:     models.StrategyTrendingFallback,
		Query:    trendingWindow(in),
		Depth:    models.DepthShallow,
		Priority: priorityTrending,
	})
	return plan
}

// combinedQuery joins the top ranked keywords into one search string,
// falling back to themes when keyword extraction found nothing.
func combinedQuery(in *models.Intent) string {
	terms := in.Keywords
	if len(terms) == 0 {
		terms = in.Themes
	}
	if len(terms) > maxCombinedKeywords {
		terms = terms[:maxCombinedKeywords]
	}
	return strings.Join(terms, " ")
}

// genreDepth widens discovery when the query carries little structure:
// a mood-only or exploratory query has nothing better than genre pages.
func genreDepth(class models.StrategyClass) models.SearchDepth {
	switch class {
	case models.ClassExploratory, models.ClassMoodDriven:
		return models.DepthDeep
	default:
		return models.DepthShallow
	}
}

func trendingWindow(in *models.Intent) string {
	if in.WantsRecent {
		return "day"
	}
	return "week"
}
