package intent

import (
	"errors"
	"strings"
	"testing"

	"github.com/priyamehta/screenscout/internal/models"
)

func TestParseAugmentation_Valid(t *testing.T) {
	text := `Here is the analysis you asked for:
{"primary_mood": "tense", "secondary_moods": ["thoughtful"],
 "themes": ["crime"], "genres": ["thriller", "Crime"],
 "exact_title_guesses": ["Se7en"], "people": ["David Fincher"],
 "places": [], "concepts": [], "era_from": 1990, "era_to": 1999,
 "confidence": 80}
Hope that helps!`

	aug, err := ParseAugmentation(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aug.PrimaryMood != "tense" {
		t.Errorf("expected tense, got %q", aug.PrimaryMood)
	}
	if len(aug.ExactTitleGuesses) != 1 || aug.ExactTitleGuesses[0] != "Se7en" {
		t.Errorf("expected Se7en, got %v", aug.ExactTitleGuesses)
	}
	if aug.EraFrom != 1990 || aug.EraTo != 1999 {
		t.Errorf("expected era 1990-1999, got %d-%d", aug.EraFrom, aug.EraTo)
	}
}

func TestParseAugmentation_BracesInsideStrings(t *testing.T) {
	text := `{"primary_mood": "", "secondary_moods": [], "themes": [],
 "genres": [], "exact_title_guesses": ["The {Weird} One"], "people": [],
 "places": [], "concepts": [], "era_from": 0, "era_to": 0, "confidence": 50}`

	aug, err := ParseAugmentation(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aug.ExactTitleGuesses[0] != "The {Weird} One" {
		t.Errorf("brace inside string mangled: %v", aug.ExactTitleGuesses)
	}
}

func TestParseAugmentation_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I cannot answer that question."},
		{"unbalanced", `{"primary_mood": "happy", "confidence": 50`},
		{"unknown field", `{"primary_mood": "", "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 0, "era_to": 0, "confidence": 50,
			"reasoning": "because"}`},
		{"unknown mood", `{"primary_mood": "vibing", "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 0, "era_to": 0, "confidence": 50}`},
		{"confidence out of range", `{"primary_mood": "", "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 0, "era_to": 0, "confidence": 150}`},
		{"era out of range", `{"primary_mood": "", "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 1492, "era_to": 0, "confidence": 50}`},
		{"inverted era", `{"primary_mood": "", "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 2010, "era_to": 1990, "confidence": 50}`},
		{"wrong type", `{"primary_mood": 42, "secondary_moods": [], "themes": [],
			"genres": [], "exact_title_guesses": [], "people": [], "places": [],
			"concepts": [], "era_from": 0, "era_to": 0, "confidence": 50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAugmentation(tt.text)
			if !errors.Is(err, ErrParseFailure) {
				t.Errorf("expected ErrParseFailure, got %v", err)
			}
		})
	}
}

func TestBuildPrompt_ContainsQuery(t *testing.T) {
	prompt := BuildPrompt("scary movie from the 80s")
	if !strings.Contains(prompt, "scary movie from the 80s") {
		t.Error("prompt must carry the raw query")
	}
	if !strings.Contains(prompt, "exact_title_guesses") {
		t.Error("prompt must describe the response schema")
	}
}

func TestMergeAugmentation_OnlyAdds(t *testing.T) {
	local := &models.Intent{
		RawText:     "scary movie",
		PrimaryMood: "scared",
		GenreHints:  []int{GenreHorror, GenreThriller},
		Keywords:    []string{"scary"},
		Class:       models.ClassMoodDriven,
		Confidence:  40,
	}
	aug := &Augmentation{
		PrimaryMood: "tense",
		Themes:      []string{"survival"},
		Genres:      []string{"mystery"},
		People:      []string{"Jamie Lee Curtis"},
		EraFrom:     1978,
		Confidence:  30,
	}

	merged := mergeAugmentation(local, aug)

	if merged.PrimaryMood != "scared" {
		t.Errorf("local mood must win, got %q", merged.PrimaryMood)
	}
	if merged.Confidence != 40 {
		t.Errorf("lower augmentation confidence must not reduce local, got %d", merged.Confidence)
	}
	if !merged.AIAugmented {
		t.Error("merge must mark the intent augmented")
	}
	if len(merged.Themes) != 1 || merged.Themes[0] != "survival" {
		t.Errorf("expected survival theme added, got %v", merged.Themes)
	}
	if merged.Era == nil || merged.Era.From == nil || *merged.Era.From != 1978 {
		t.Errorf("expected era from augmentation, got %v", merged.Era)
	}
	if merged.Class != models.ClassEntityDriven {
		t.Errorf("added person should reclassify to entity-driven, got %v", merged.Class)
	}

	found := false
	for _, g := range merged.GenreHints {
		if g == GenreMystery {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mystery genre hint, got %v", merged.GenreHints)
	}

	// The local intent itself must be untouched.
	if local.AIAugmented || len(local.Themes) != 0 {
		t.Error("merge must not mutate the local intent")
	}
}

func TestMergeAugmentation_LocalEraWins(t *testing.T) {
	from, to := 1980, 1989
	local := &models.Intent{
		RawText: "horror from the 80s",
		Era:     &models.EraRange{From: &from, To: &to},
	}
	aug := &Augmentation{EraFrom: 2000, EraTo: 2010, Confidence: 20}

	merged := mergeAugmentation(local, aug)
	if *merged.Era.From != 1980 || *merged.Era.To != 1989 {
		t.Errorf("local era must win, got %v", merged.Era)
	}
}

func TestMergeAugmentation_ConfidenceClamped(t *testing.T) {
	local := &models.Intent{RawText: "x", Confidence: 10}
	aug := &Augmentation{Confidence: 100}

	merged := mergeAugmentation(local, aug)
	if merged.Confidence != 95 {
		t.Errorf("expected clamp to 95, got %d", merged.Confidence)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"embedded", `preamble {"a": {"b": 2}} trailer`, `{"a": {"b": 2}}`, true},
		{"brace in string", `{"a": "}"}`, `{"a": "}"}`, true},
		{"escaped quote", `{"a": "\"}"}`, `{"a": "\"}"}`, true},
		{"no object", `plain text`, "", false},
		{"never closed", `{"a": 1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONObject(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
