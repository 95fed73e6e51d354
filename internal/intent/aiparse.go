package intent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

// ErrParseFailure tags an AI response that did not contain a valid
// augmentation object. Callers fall back to the lexicon result.
var ErrParseFailure = errors.New("unparseable augmentation response")

// Augmentation is the schema the inference endpoint is asked to embed in
// its free-text response.
type Augmentation struct {
	PrimaryMood       string   `json:"primary_mood"`
	SecondaryMoods    []string `json:"secondary_moods"`
	Themes            []string `json:"themes"`
	Genres            []string `json:"genres"`
	ExactTitleGuesses []string `json:"exact_title_guesses"`
	People            []string `json:"people"`
	Places            []string `json:"places"`
	Concepts          []string `json:"concepts"`
	EraFrom           int      `json:"era_from"`
	EraTo             int      `json:"era_to"`
	Confidence        int      `json:"confidence"`
}

// BuildPrompt asks the model for exactly one JSON object in the
// Augmentation schema.
func BuildPrompt(query string) string {
	var b strings.Builder
	b.WriteString("Analyze this movie/TV search query and respond with a single JSON object ")
	b.WriteString("using exactly these keys: primary_mood (one of: happy, sad, excited, scared, ")
	b.WriteString("romantic, funny, tense, thoughtful, or empty), secondary_moods, themes, genres, ")
	b.WriteString("exact_title_guesses (titles the query likely describes), people, places, concepts, ")
	b.WriteString("era_from, era_to (years, 0 if unknown), confidence (0-100).\n\nQuery: ")
	b.WriteString(query)
	return b.String()
}

// ParseAugmentation extracts and strictly decodes the first balanced JSON
// object embedded in the response text. Any structural problem returns
// ErrParseFailure rather than a partial result.
func ParseAugmentation(text string) (*Augmentation, error) {
	blob, ok := extractJSONObject(text)
	if !ok {
		observability.IntentParseFailures.Inc()
		return nil, fmt.Errorf("%w: no JSON object found", ErrParseFailure)
	}

	dec := json.NewDecoder(strings.NewReader(blob))
	dec.DisallowUnknownFields()

	var aug Augmentation
	if err := dec.Decode(&aug); err != nil {
		observability.IntentParseFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	if err := aug.validate(); err != nil {
		observability.IntentParseFailures.Inc()
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return &aug, nil
}

func (a *Augmentation) validate() error {
	if a.Confidence < 0 || a.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range", a.Confidence)
	}
	if a.PrimaryMood != "" && GenresForMood(a.PrimaryMood) == nil {
		return fmt.Errorf("unknown mood %q", a.PrimaryMood)
	}
	if a.EraFrom != 0 && (a.EraFrom < 1880 || a.EraFrom > 2100) {
		return fmt.Errorf("era_from %d out of range", a.EraFrom)
	}
	if a.EraTo != 0 && (a.EraTo < 1880 || a.EraTo > 2100) {
		return fmt.Errorf("era_to %d out of range", a.EraTo)
	}
	if a.EraFrom != 0 && a.EraTo != 0 && a.EraFrom > a.EraTo {
		return fmt.Errorf("era range inverted: %d > %d", a.EraFrom, a.EraTo)
	}
	return nil
}

// extractJSONObject finds the first balanced {...} block, skipping braces
// inside string literals.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// mergeAugmentation layers AI findings over the local analysis. Local
// results are never discarded; augmentation only adds signal.
func mergeAugmentation(local *models.Intent, aug *Augmentation) *models.Intent {
	merged := *local
	merged.AIAugmented = true

	if aug.PrimaryMood != "" && merged.PrimaryMood == "" {
		merged.PrimaryMood = aug.PrimaryMood
		merged.GenreHints = appendUniqueInts(merged.GenreHints, GenresForMood(aug.PrimaryMood)...)
	}
	for _, mood := range aug.SecondaryMoods {
		if GenresForMood(mood) != nil && mood != merged.PrimaryMood && len(merged.SecondaryMoods) < 2 {
			merged.SecondaryMoods = appendUnique(merged.SecondaryMoods, mood)
		}
	}

	merged.Themes = appendUnique(merged.Themes, aug.Themes...)
	merged.ExactTitleGuesses = appendUnique(merged.ExactTitleGuesses, aug.ExactTitleGuesses...)
	merged.Entities.People = appendUnique(merged.Entities.People, aug.People...)
	merged.Entities.Places = appendUnique(merged.Entities.Places, aug.Places...)
	merged.Entities.Concepts = appendUnique(merged.Entities.Concepts, aug.Concepts...)

	for _, g := range aug.Genres {
		if id, ok := genreNames[strings.ToLower(g)]; ok {
			merged.GenreHints = appendUniqueInts(merged.GenreHints, id)
		}
	}

	if merged.Era == nil && (aug.EraFrom != 0 || aug.EraTo != 0) {
		era := &models.EraRange{}
		if aug.EraFrom != 0 {
			from := aug.EraFrom
			era.From = &from
		}
		if aug.EraTo != 0 {
			to := aug.EraTo
			era.To = &to
		}
		merged.Era = era
	}

	// Reclassify with the richer signal set, then take the stronger of
	// the two confidence estimates.
	merged.Class = classify(&merged)
	if aug.Confidence > merged.Confidence {
		merged.Confidence = aug.Confidence
	}
	if merged.Confidence > MaxConfidence {
		merged.Confidence = MaxConfidence
	}
	return &merged
}
