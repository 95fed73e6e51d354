package models

import "time"

// StrategyClass reflects how much structure the analyzer found in the
// query text, which drives strategy planning.
type StrategyClass int

const (
	ClassExploratory StrategyClass = iota
	ClassMoodDriven
	ClassEntityDriven
	ClassTitleLookup
)

func (c StrategyClass) String() string {
	switch c {
	case ClassExploratory:
		return "exploratory"
	case ClassMoodDriven:
		return "mood"
	case ClassEntityDriven:
		return "entity"
	case ClassTitleLookup:
		return "title"
	default:
		return "unknown"
	}
}

// Entities are people, places and concepts extracted from the query text.
type Entities struct {
	People   []string `json:"people,omitempty"`
	Places   []string `json:"places,omitempty"`
	Concepts []string `json:"concepts,omitempty"`
}

// EraRange is an inclusive release-year window. A nil bound is open.
type EraRange struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// Contains reports whether year falls inside the window.
func (e *EraRange) Contains(year int) bool {
	if e == nil {
		return true
	}
	if e.From != nil && year < *e.From {
		return false
	}
	if e.To != nil && year > *e.To {
		return false
	}
	return true
}

// Intent is the structured interpretation of one raw query. It is built
// once per search and never mutated afterwards.
type Intent struct {
	RawText           string        `json:"raw_text"`
	PrimaryMood       string        `json:"primary_mood,omitempty"`
	SecondaryMoods    []string      `json:"secondary_moods,omitempty"`
	Themes            []string      `json:"themes,omitempty"`
	Keywords          []string      `json:"keywords,omitempty"`
	GenreHints        []int         `json:"genre_hints,omitempty"`
	ExactTitleGuesses []string      `json:"exact_title_guesses,omitempty"`
	Entities          Entities      `json:"entities"`
	Era               *EraRange     `json:"era,omitempty"`
	WantsRecent       bool          `json:"wants_recent,omitempty"`
	Class             StrategyClass `json:"class"`
	Confidence        int           `json:"confidence"`
	AIAugmented       bool          `json:"ai_augmented,omitempty"`
}

type StrategyKind int

const (
	StrategyExactTitle StrategyKind = iota
	StrategyPerson
	StrategyKeyword
	StrategyGenreDiscover
	StrategyTrendingFallback
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyExactTitle:
		return "exact_title"
	case StrategyPerson:
		return "person"
	case StrategyKeyword:
		return "keyword"
	case StrategyGenreDiscover:
		return "genre_discover"
	case StrategyTrendingFallback:
		return "trending_fallback"
	default:
		return "unknown"
	}
}

type SearchDepth int

const (
	DepthShallow SearchDepth = iota
	DepthDeep
	DepthExhaustive
)

// Pages maps a depth to its page budget against the catalog.
func (d SearchDepth) Pages() int {
	switch d {
	case DepthDeep:
		return 5
	case DepthExhaustive:
		return 10
	default:
		return 2
	}
}

// Strategy is one concrete retrieval plan derived from an Intent.
// Exactly one of Query / Person / GenreID is meaningful per kind.
type Strategy struct {
	Kind     StrategyKind `json:"kind"`
	Query    string       `json:"query,omitempty"`
	Person   string       `json:"person,omitempty"`
	GenreID  int          `json:"genre_id,omitempty"`
	Depth    SearchDepth  `json:"depth"`
	Priority int          `json:"priority"`
}

// Candidate is a catalog item as the gateway returns it. Identity is
// CatalogID: candidates sharing an id are the same title.
type Candidate struct {
	CatalogID       int64   `json:"catalog_id"`
	Title           string  `json:"title"`
	Synopsis        string  `json:"synopsis,omitempty"`
	ReleaseDate     string  `json:"release_date,omitempty"`
	RatingAverage   float64 `json:"rating_average"`
	RatingCount     int64   `json:"rating_count"`
	GenreTags       []int   `json:"genre_tags,omitempty"`
	PopularityScore float64 `json:"popularity_score"`
}

// ReleaseYear parses the year out of ReleaseDate, returning 0 when the
// date is absent or malformed.
func (c *Candidate) ReleaseYear() int {
	if len(c.ReleaseDate) < 4 {
		return 0
	}
	year := 0
	for _, r := range c.ReleaseDate[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// ScoredCandidate pairs a candidate with its relevance score. Derived per
// query and never persisted.
type ScoredCandidate struct {
	Candidate
	Score          float64  `json:"score"`
	MatchedSignals []string `json:"matched_signals,omitempty"`
}

// SearchResult is the engine's output. Items are unique by catalog id and
// ordered by descending score.
type SearchResult struct {
	Items                     []ScoredCandidate `json:"items"`
	Explanation               string            `json:"explanation"`
	Confidence                int               `json:"confidence"`
	StrategyUsed              string            `json:"strategy_used"`
	Tier                      string            `json:"tier"`
	TotalCandidatesConsidered int               `json:"total_candidates_considered"`
	Degraded                  bool              `json:"degraded"`
	TookMs                    int64             `json:"took_ms"`
	RequestID                 string            `json:"request_id,omitempty"`
}

// CatalogPage is the shape every gateway listing endpoint returns.
type CatalogPage struct {
	Items        []Candidate `json:"items"`
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int64       `json:"total_results"`
}

// SearchEvent is published to Kafka after each completed search.
type SearchEvent struct {
	EventType      string    `json:"event_type"`
	QueryHash      string    `json:"query_hash"`
	Tier           string    `json:"tier"`
	Strategy       string    `json:"strategy"`
	CandidateCount int       `json:"candidate_count"`
	ResultCount    int       `json:"result_count"`
	Confidence     int       `json:"confidence"`
	Degraded       bool      `json:"degraded"`
	DurationMs     float64   `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
	TraceID        string    `json:"trace_id"`
}
