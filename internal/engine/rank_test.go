package engine

import (
	"testing"
	"time"

	"github.com/priyamehta/screenscout/internal/models"
)

func fixedRanker() *ranker {
	return &ranker{now: func() time.Time {
		return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	}}
}

func TestDedupeCandidates(t *testing.T) {
	items := []models.Candidate{
		{CatalogID: 1, Title: "First"},
		{CatalogID: 2, Title: "Second"},
		{CatalogID: 1, Title: "First Duplicate"},
		{CatalogID: 3, Title: "Third"},
		{CatalogID: 2, Title: "Second Duplicate"},
	}

	out := dedupeCandidates(items)
	if len(out) != 3 {
		t.Fatalf("expected 3 unique candidates, got %d", len(out))
	}
	// First occurrence wins, order preserved.
	if out[0].CatalogID != 1 || out[0].Title != "First" {
		t.Errorf("unexpected first item: %+v", out[0])
	}
	if out[1].CatalogID != 2 || out[1].Title != "Second" {
		t.Errorf("unexpected second item: %+v", out[1])
	}

	// Idempotent.
	again := dedupeCandidates(out)
	if len(again) != len(out) {
		t.Error("dedupe must be idempotent")
	}
	for i := range again {
		if again[i].CatalogID != out[i].CatalogID {
			t.Error("dedupe must preserve order on a second pass")
		}
	}
}

func TestDedupeCandidates_Empty(t *testing.T) {
	if out := dedupeCandidates(nil); out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
}

func TestRank_ExactTitleDominates(t *testing.T) {
	in := &models.Intent{ExactTitleGuesses: []string{"The Matrix"}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Matrix Explained", RatingAverage: 9.9, RatingCount: 1_000_000, PopularityScore: 900},
		{CatalogID: 2, Title: "The Matrix", RatingAverage: 5.0, RatingCount: 10},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 2 {
		t.Errorf("exact title must outrank any quality signal, got %d first", out[0].CatalogID)
	}
	if !hasSignal(out[0].MatchedSignals, "exact_title") {
		t.Errorf("expected exact_title signal, got %v", out[0].MatchedSignals)
	}
}

func TestRank_KeywordMonotonicity(t *testing.T) {
	in := &models.Intent{Keywords: []string{"heist"}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "A Quiet Film", RatingAverage: 7.0, RatingCount: 100},
		{CatalogID: 2, Title: "A Quiet Heist", RatingAverage: 7.0, RatingCount: 100},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 2 {
		t.Error("keyword in title must strictly increase the score")
	}
	if out[0].Score <= out[1].Score {
		t.Errorf("expected strict ordering, got %f vs %f", out[0].Score, out[1].Score)
	}
}

func TestRank_TitleBeatsSynopsis(t *testing.T) {
	in := &models.Intent{Keywords: []string{"heist"}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Plain Title", Synopsis: "a daring heist goes wrong"},
		{CatalogID: 2, Title: "The Heist"},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 2 {
		t.Error("keyword in title must outweigh keyword in synopsis")
	}
}

func TestRank_EraHardFilter(t *testing.T) {
	from, to := 1990, 1999
	in := &models.Intent{Era: &models.EraRange{From: &from, To: &to}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Too Old", ReleaseDate: "1985-01-01", RatingAverage: 10},
		{CatalogID: 2, Title: "In Window", ReleaseDate: "1994-06-10", RatingAverage: 2},
		{CatalogID: 3, Title: "Boundary Low", ReleaseDate: "1990-01-01"},
		{CatalogID: 4, Title: "Boundary High", ReleaseDate: "1999-12-31"},
		{CatalogID: 5, Title: "Too New", ReleaseDate: "2005-01-01", RatingAverage: 10},
		{CatalogID: 6, Title: "Undated"},
	}

	out := fixedRanker().Rank(in, items, 10)
	for _, sc := range out {
		year := sc.ReleaseYear()
		if year < 1990 || year > 1999 {
			t.Errorf("out-of-era candidate %d survived the filter", sc.CatalogID)
		}
	}
	ids := map[int64]bool{}
	for _, sc := range out {
		ids[sc.CatalogID] = true
	}
	for _, want := range []int64{2, 3, 4} {
		if !ids[want] {
			t.Errorf("in-window candidate %d missing", want)
		}
	}
	if ids[1] || ids[5] {
		t.Error("out-of-window candidates must never appear regardless of score")
	}
	if ids[6] {
		t.Error("an undated candidate cannot satisfy an explicit era")
	}
}

func TestRank_MoodDrivenGenreFilter(t *testing.T) {
	in := &models.Intent{
		PrimaryMood: "happy",
		GenreHints:  []int{35, 10751},
		Class:       models.ClassMoodDriven,
	}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Comedy Gold", GenreTags: []int{35}},
		{CatalogID: 2, Title: "Trending Horror", GenreTags: []int{27}, PopularityScore: 900},
		{CatalogID: 3, Title: "Family Fun", GenreTags: []int{10751, 18}},
		{CatalogID: 4, Title: "Untagged Filler"},
	}

	out := fixedRanker().Rank(in, items, 10)
	if len(out) != 2 {
		t.Fatalf("expected only hinted-genre candidates, got %d", len(out))
	}
	for _, sc := range out {
		if sc.CatalogID == 2 || sc.CatalogID == 4 {
			t.Errorf("candidate %d has no hinted genre and must be dropped", sc.CatalogID)
		}
	}
}

func TestRank_GenreHintsSoftOutsideMoodClass(t *testing.T) {
	in := &models.Intent{GenreHints: []int{35}, Class: models.ClassEntityDriven}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Untagged Credit"},
		{CatalogID: 2, Title: "Tagged Credit", GenreTags: []int{35}},
	}

	out := fixedRanker().Rank(in, items, 10)
	if len(out) != 2 {
		t.Fatalf("hints must only reorder outside the mood class, got %d items", len(out))
	}
	if out[0].CatalogID != 2 {
		t.Error("hinted-genre candidate should still rank first")
	}
}

func TestRank_GenreOverlapScales(t *testing.T) {
	in := &models.Intent{GenreHints: []int{35, 10751}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "One Overlap", GenreTags: []int{35, 18}},
		{CatalogID: 2, Title: "Two Overlaps", GenreTags: []int{35, 10751}},
		{CatalogID: 3, Title: "No Overlap", GenreTags: []int{27}},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 2 || out[1].CatalogID != 1 || out[2].CatalogID != 3 {
		t.Errorf("genre overlap must scale with tag count, got order %d %d %d",
			out[0].CatalogID, out[1].CatalogID, out[2].CatalogID)
	}
}

func TestRank_RecencyOnlyOnPreference(t *testing.T) {
	items := []models.Candidate{
		{CatalogID: 1, Title: "Old", ReleaseDate: "2010-01-01"},
		{CatalogID: 2, Title: "New", ReleaseDate: "2025-01-01"},
	}

	neutral := fixedRanker().Rank(&models.Intent{}, items, 10)
	if neutral[0].Score != neutral[1].Score {
		t.Error("without recency preference, release year must not affect score")
	}

	recent := fixedRanker().Rank(&models.Intent{WantsRecent: true}, items, 10)
	if recent[0].CatalogID != 2 {
		t.Error("recency preference must lift newer titles")
	}
	if !hasSignal(recent[0].MatchedSignals, "recent") {
		t.Errorf("expected recent signal, got %v", recent[0].MatchedSignals)
	}
}

func TestRank_TieBreakByInsertionOrder(t *testing.T) {
	in := &models.Intent{}
	items := []models.Candidate{
		{CatalogID: 10, Title: "Alpha", RatingAverage: 7},
		{CatalogID: 20, Title: "Beta", RatingAverage: 7},
		{CatalogID: 30, Title: "Gamma", RatingAverage: 7},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 10 || out[1].CatalogID != 20 || out[2].CatalogID != 30 {
		t.Errorf("equal scores must keep insertion order, got %d %d %d",
			out[0].CatalogID, out[1].CatalogID, out[2].CatalogID)
	}
}

func TestRank_Truncates(t *testing.T) {
	var items []models.Candidate
	for i := int64(1); i <= 30; i++ {
		items = append(items, models.Candidate{CatalogID: i, Title: "Film"})
	}
	out := fixedRanker().Rank(&models.Intent{}, items, 10)
	if len(out) != 10 {
		t.Errorf("expected truncation to 10, got %d", len(out))
	}
}

func TestRank_ThemeMatching(t *testing.T) {
	in := &models.Intent{Themes: []string{"time-travel"}}
	items := []models.Candidate{
		{CatalogID: 1, Title: "Nothing Here"},
		{CatalogID: 2, Title: "Plain", Synopsis: "a story about time travel and regret"},
	}

	out := fixedRanker().Rank(in, items, 10)
	if out[0].CatalogID != 2 {
		t.Error("hyphenated theme must match its spaced form in the synopsis")
	}
	if !hasSignal(out[0].MatchedSignals, "theme:time-travel") {
		t.Errorf("expected theme signal, got %v", out[0].MatchedSignals)
	}
}
