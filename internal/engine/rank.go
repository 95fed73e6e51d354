package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/priyamehta/screenscout/internal/models"
)

// Scoring weights. Exact-title dominates everything else by construction;
// the rest layer keyword, theme, genre, quality and recency evidence.
const (
	weightExactTitle      = 500.0
	weightKeywordTitle    = 60.0
	weightKeywordSynopsis = 25.0
	weightThemeTitle      = 30.0
	weightThemeSynopsis   = 12.0
	weightGenreOverlap    = 40.0
	weightRating          = 6.0
	weightEvidence        = 8.0
	recencyMaxBonus       = 50.0
	recencyDecayPerYear   = 10.0
)

type ranker struct {
	now func() time.Time
}

// Rank scores, filters, sorts and truncates the deduplicated candidates.
// An explicit era range is a hard filter: out-of-window and undated
// candidates are dropped before scoring. A mood-driven intent adds a
// second hard filter, keeping only candidates that share a hinted genre
// so the trending backstop cannot inject contradictory titles. Ties keep
// insertion order.
func (r *ranker) Rank(in *models.Intent, items []models.Candidate, limit int) []models.ScoredCandidate {
	currentYear := r.now().Year()
	mustMatchGenre := in.Class == models.ClassMoodDriven && len(in.GenreHints) > 0

	scored := make([]models.ScoredCandidate, 0, len(items))
	for _, c := range items {
		year := c.ReleaseYear()
		if in.Era != nil && (year == 0 || !in.Era.Contains(year)) {
			continue
		}
		if mustMatchGenre && genreOverlap(in.GenreHints, c.GenreTags) == 0 {
			continue
		}
		score, signals := r.score(in, &c, year, currentYear)
		scored = append(scored, models.ScoredCandidate{
			Candidate:      c,
			Score:          score,
			MatchedSignals: signals,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (r *ranker) score(in *models.Intent, c *models.Candidate, year, currentYear int) (float64, []string) {
	var score float64
	var signals []string

	title := strings.ToLower(c.Title)
	synopsis := strings.ToLower(c.Synopsis)

	for _, guess := range in.ExactTitleGuesses {
		if strings.EqualFold(c.Title, guess) {
			score += weightExactTitle
			signals = append(signals, "exact_title")
			break
		}
	}

	for _, kw := range in.Keywords {
		needle := strings.ToLower(kw)
		switch {
		case strings.Contains(title, needle):
			score += weightKeywordTitle
			signals = append(signals, "keyword:"+kw)
		case strings.Contains(synopsis, needle):
			score += weightKeywordSynopsis
			signals = append(signals, "keyword:"+kw)
		}
	}

	for _, theme := range in.Themes {
		needle := strings.ToLower(strings.ReplaceAll(theme, "-", " "))
		switch {
		case strings.Contains(title, needle):
			score += weightThemeTitle
			signals = append(signals, "theme:"+theme)
		case strings.Contains(synopsis, needle):
			score += weightThemeSynopsis
			signals = append(signals, "theme:"+theme)
		}
	}

	if overlap := genreOverlap(in.GenreHints, c.GenreTags); overlap > 0 {
		score += weightGenreOverlap * float64(overlap)
		signals = append(signals, "genre_overlap")
	}

	// Quality rewards well-evidenced titles over highly-rated-by-few ones.
	evidence := float64(c.RatingCount) + c.PopularityScore
	if evidence < 0 {
		evidence = 0
	}
	score += weightRating*c.RatingAverage + weightEvidence*math.Log10(1+evidence)

	if in.WantsRecent && year > 0 {
		bonus := recencyMaxBonus - recencyDecayPerYear*float64(currentYear-year)
		if bonus > 0 {
			score += bonus
			signals = append(signals, "recent")
		}
	}

	return score, signals
}

func genreOverlap(hints, tags []int) int {
	if len(hints) == 0 || len(tags) == 0 {
		return 0
	}
	overlap := 0
	for _, h := range hints {
		for _, t := range tags {
			if h == t {
				overlap++
				break
			}
		}
	}
	return overlap
}
