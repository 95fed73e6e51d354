// Package intent turns free-form query text into a structured,
// confidence-scored Intent. The lexicon path is always available and
// deterministic; AI augmentation is optional and every augmentation
// failure falls back to the local result.
package intent

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/ai"
	"github.com/priyamehta/screenscout/internal/models"
)

// MaxConfidence leaves headroom for exact matches found downstream; the
// cascade uses it as the primary tier's cap.
const MaxConfidence = 95

type Analyzer struct {
	inferencer ai.Inferencer
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyzer builds an analyzer. inferencer may be nil, which disables
// AI augmentation entirely.
func NewAnalyzer(inferencer ai.Inferencer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		inferencer: inferencer,
		logger:     logger,
		now:        time.Now,
	}
}

var (
	multiSpacePattern = regexp.MustCompile(`\s+`)
	quotePattern      = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)

	// properName matches 1-4 consecutive capitalized words.
	properName = `((?:[A-Z][\w'.-]*(?:\s|$)){1,4})`

	starringPattern  = regexp.MustCompile(`(?:starring|featuring|stars|with actor)\s+` + properName)
	directorPattern  = regexp.MustCompile(`(?:directed by|director|by director|from director)\s+` + properName)
	placePattern     = regexp.MustCompile(`(?:set in|takes place in)\s+` + properName)
	similarPattern   = regexp.MustCompile(`(?:like|similar to)\s+((?:[A-Z][\w'.:-]*(?:\s|$)){1,6})`)
	decadePattern    = regexp.MustCompile(`\b(?:(19|20)(\d)0|(\d)0)'?s\b`)
	yearPattern      = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	tokenTrimPattern = regexp.MustCompile(`^[^\w]+|[^\w]+$`)
)

// Analyze runs the full pipeline: local lexicon analysis, then AI
// augmentation when an inferencer is configured. It never fails; any
// augmentation problem yields the local result.
func (a *Analyzer) Analyze(ctx context.Context, raw string) *models.Intent {
	local := a.AnalyzeLocal(raw)

	if a.inferencer == nil || !a.inferencer.Available() || strings.TrimSpace(raw) == "" {
		return local
	}

	text, err := a.inferencer.Infer(ctx, BuildPrompt(raw))
	if err != nil {
		a.logger.Warn("intent augmentation call failed, using lexicon result", zap.Error(err))
		return local
	}

	aug, err := ParseAugmentation(text)
	if err != nil {
		a.logger.Warn("intent augmentation unparseable, using lexicon result", zap.Error(err))
		return local
	}

	return mergeAugmentation(local, aug)
}

// AnalyzeLocal is the deterministic lexicon-only path.
func (a *Analyzer) AnalyzeLocal(raw string) *models.Intent {
	out := &models.Intent{
		RawText: raw,
		Class:   models.ClassExploratory,
	}

	normalized := normalize(raw)
	if normalized == "" {
		return out
	}

	moodTop := a.detectMoods(normalized, out)
	a.detectThemes(normalized, out)
	a.detectEntities(raw, out)
	a.detectEra(normalized, out)
	out.Keywords = extractKeywords(normalized)

	out.Class = classify(out)
	out.Confidence = confidence(out, moodTop)
	return out
}

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return multiSpacePattern.ReplaceAllString(s, " ")
}

// detectMoods scores every mood category and fills primary/secondary
// moods plus their genre hints. Returns the top score for confidence.
func (a *Analyzer) detectMoods(normalized string, out *models.Intent) int {
	type moodScore struct {
		name   string
		score  int
		genres []int
	}

	var scored []moodScore
	for _, entry := range moodLexicon {
		score := 0
		for _, p := range entry.patterns {
			if strings.Contains(normalized, p.phrase) {
				score += p.weight
			}
		}
		for _, anti := range entry.antiPatterns {
			if strings.Contains(normalized, anti) {
				score -= entry.penalty
			}
		}
		if score > 0 {
			scored = append(scored, moodScore{entry.name, score, entry.genres})
		}
	}

	if len(scored) == 0 {
		return 0
	}

	// Stable: lexicon order breaks score ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out.PrimaryMood = scored[0].name
	out.GenreHints = appendUniqueInts(out.GenreHints, scored[0].genres...)
	for _, ms := range scored[1:] {
		if len(out.SecondaryMoods) >= 2 {
			break
		}
		out.SecondaryMoods = append(out.SecondaryMoods, ms.name)
	}
	return scored[0].score
}

func (a *Analyzer) detectThemes(normalized string, out *models.Intent) {
	// Deterministic iteration over the map.
	names := make([]string, 0, len(themeLexicon))
	for name := range themeLexicon {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, kw := range themeLexicon[name] {
			if strings.Contains(normalized, kw) {
				out.Themes = append(out.Themes, name)
				out.GenreHints = appendUniqueInts(out.GenreHints, themeGenres[name]...)
				break
			}
		}
	}
}

// detectEntities runs against the original (case-preserving) text:
// capitalization carries the signal.
func (a *Analyzer) detectEntities(raw string, out *models.Intent) {
	for _, m := range quotePattern.FindAllStringSubmatch(raw, -1) {
		title := m[1]
		if title == "" {
			title = m[2]
		}
		title = strings.TrimSpace(title)
		if title != "" {
			out.ExactTitleGuesses = appendUnique(out.ExactTitleGuesses, title)
		}
	}

	for _, m := range starringPattern.FindAllStringSubmatch(raw, -1) {
		if name := cleanProperName(m[1]); name != "" {
			out.Entities.People = appendUnique(out.Entities.People, name)
		}
	}
	for _, m := range directorPattern.FindAllStringSubmatch(raw, -1) {
		if name := cleanProperName(m[1]); name != "" {
			out.Entities.People = appendUnique(out.Entities.People, name)
		}
	}
	for _, m := range placePattern.FindAllStringSubmatch(raw, -1) {
		if name := cleanProperName(m[1]); name != "" {
			out.Entities.Places = appendUnique(out.Entities.Places, name)
		}
	}
	for _, m := range similarPattern.FindAllStringSubmatch(raw, -1) {
		if title := cleanProperName(m[1]); title != "" {
			out.ExactTitleGuesses = appendUnique(out.ExactTitleGuesses, title)
		}
	}

	// Mid-sentence capitalized runs of 2+ words are treated as concepts
	// (franchise names, fictional places) when no trigger claimed them.
	words := strings.Fields(raw)
	var run []string
	flush := func() {
		if len(run) >= 2 {
			concept := strings.Join(run, " ")
			if !containsFold(out.Entities.People, concept) &&
				!containsFold(out.ExactTitleGuesses, concept) &&
				!containsFold(out.Entities.Places, concept) {
				out.Entities.Concepts = appendUnique(out.Entities.Concepts, concept)
			}
		}
		run = nil
	}
	for i, w := range words {
		cleaned := tokenTrimPattern.ReplaceAllString(w, "")
		if i > 0 && cleaned != "" && isCapitalized(cleaned) && !stopWords[strings.ToLower(cleaned)] {
			run = append(run, cleaned)
			continue
		}
		flush()
	}
	flush()
}

func (a *Analyzer) detectEra(normalized string, out *models.Intent) {
	currentYear := a.now().Year()

	for _, term := range recencyTerms {
		if strings.Contains(normalized, term) {
			from := currentYear - 5
			out.WantsRecent = true
			out.Era = &models.EraRange{From: &from}
			return
		}
	}
	for _, term := range classicTerms {
		if strings.Contains(normalized, term) {
			to := 1979
			out.Era = &models.EraRange{To: &to}
			return
		}
	}

	if m := decadePattern.FindStringSubmatch(normalized); m != nil {
		var from int
		switch {
		case m[1] != "":
			century, _ := strconv.Atoi(m[1])
			decade, _ := strconv.Atoi(m[2])
			from = century*100 + decade*10
		default:
			decade, _ := strconv.Atoi(m[3])
			// Bare "80s" style decades read as 20th century; "00s"–"20s"
			// read as 21st.
			if decade <= 2 {
				from = 2000 + decade*10
			} else {
				from = 1900 + decade*10
			}
		}
		to := from + 9
		out.Era = &models.EraRange{From: &from, To: &to}
		return
	}

	years := yearPattern.FindAllString(normalized, -1)
	if len(years) >= 2 {
		a1, _ := strconv.Atoi(years[0])
		a2, _ := strconv.Atoi(years[1])
		if a1 > a2 {
			a1, a2 = a2, a1
		}
		out.Era = &models.EraRange{From: &a1, To: &a2}
	} else if len(years) == 1 {
		y, _ := strconv.Atoi(years[0])
		out.Era = &models.EraRange{From: &y, To: &y}
	}
}

func extractKeywords(normalized string) []string {
	var keywords []string
	for _, w := range strings.Fields(normalized) {
		cleaned := tokenTrimPattern.ReplaceAllString(w, "")
		if cleaned == "" || stopWords[cleaned] || len(cleaned) < 3 {
			continue
		}
		keywords = appendUnique(keywords, cleaned)
		if len(keywords) >= 8 {
			break
		}
	}
	return keywords
}

func classify(in *models.Intent) models.StrategyClass {
	switch {
	case len(in.ExactTitleGuesses) > 0:
		return models.ClassTitleLookup
	case len(in.Entities.People) > 0 || len(in.Entities.Concepts) > 0:
		return models.ClassEntityDriven
	case in.PrimaryMood != "":
		return models.ClassMoodDriven
	default:
		return models.ClassExploratory
	}
}

// confidence combines the mood score, classification certainty, and the
// theme/entity evidence count, clamped to leave headroom for downstream
// exact matches.
func confidence(in *models.Intent, moodTop int) int {
	if strings.TrimSpace(in.RawText) == "" {
		return 0
	}

	conf := moodTop * 2
	if conf > 30 {
		conf = 30
	}

	switch in.Class {
	case models.ClassTitleLookup:
		conf += 30
	case models.ClassEntityDriven:
		conf += 25
	case models.ClassMoodDriven:
		conf += 20
	default:
		conf += 5
	}

	themeBonus := len(in.Themes) * 5
	if themeBonus > 15 {
		themeBonus = 15
	}
	conf += themeBonus

	entityCount := len(in.Entities.People) + len(in.Entities.Places) + len(in.Entities.Concepts)
	entityBonus := entityCount * 5
	if entityBonus > 15 {
		entityBonus = 15
	}
	conf += entityBonus

	if len(in.Keywords) > 0 {
		conf += 5
	}

	if conf < 0 {
		conf = 0
	}
	if conf > MaxConfidence {
		conf = MaxConfidence
	}
	return conf
}

func cleanProperName(s string) string {
	s = strings.TrimSpace(s)
	words := strings.Fields(s)
	// Trailing lowercase captures mean the run ended; keep leading
	// capitalized words only.
	var kept []string
	for _, w := range words {
		if !isCapitalized(w) {
			break
		}
		kept = append(kept, tokenTrimPattern.ReplaceAllString(w, ""))
	}
	return strings.Join(kept, " ")
}

func isCapitalized(w string) bool {
	if w == "" {
		return false
	}
	r := rune(w[0])
	return r >= 'A' && r <= 'Z'
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !containsFold(list, item) {
			list = append(list, item)
		}
	}
	return list
}

func containsFold(list []string, item string) bool {
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return true
		}
	}
	return false
}

func appendUniqueInts(list []int, items ...int) []int {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
