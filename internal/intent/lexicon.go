package intent

// Catalog genre identifiers (TMDB numbering).
const (
	GenreAction      = 28
	GenreAdventure   = 12
	GenreAnimation   = 16
	GenreComedy      = 35
	GenreCrime       = 80
	GenreDocumentary = 99
	GenreDrama       = 18
	GenreFamily      = 10751
	GenreFantasy     = 14
	GenreHistory     = 36
	GenreHorror      = 27
	GenreMusic       = 10402
	GenreMystery     = 9648
	GenreRomance     = 10749
	GenreSciFi       = 878
	GenreThriller    = 53
	GenreWar         = 10752
	GenreWestern     = 37
)

// genreNames maps the names an AI response may use back to catalog ids.
var genreNames = map[string]int{
	"action":          GenreAction,
	"adventure":       GenreAdventure,
	"animation":       GenreAnimation,
	"comedy":          GenreComedy,
	"crime":           GenreCrime,
	"documentary":     GenreDocumentary,
	"drama":           GenreDrama,
	"family":          GenreFamily,
	"fantasy":         GenreFantasy,
	"history":         GenreHistory,
	"horror":          GenreHorror,
	"music":           GenreMusic,
	"musical":         GenreMusic,
	"mystery":         GenreMystery,
	"romance":         GenreRomance,
	"romantic":        GenreRomance,
	"sci-fi":          GenreSciFi,
	"scifi":           GenreSciFi,
	"science fiction": GenreSciFi,
	"thriller":        GenreThriller,
	"war":             GenreWar,
	"western":         GenreWestern,
}

type weightedPattern struct {
	phrase string
	weight int
}

// moodEntry is one mood category in the lexicon. Anti-patterns subtract
// their penalty so "exciting but not scary" resolves against the scary
// mood deterministically instead of by match order.
type moodEntry struct {
	name         string
	patterns     []weightedPattern
	antiPatterns []string
	penalty      int
	genres       []int
}

var moodLexicon = []moodEntry{
	{
		name: "happy",
		patterns: []weightedPattern{
			{"feel good", 10}, {"feel-good", 10}, {"uplifting", 10},
			{"happy", 8}, {"cheerful", 8}, {"heartwarming", 9},
			{"wholesome", 8}, {"after a bad day", 9}, {"cheer me up", 10},
			{"lighthearted", 8}, {"light-hearted", 8}, {"fun", 4},
		},
		antiPatterns: []string{"sad", "depressing", "dark", "tragic"},
		penalty:      6,
		genres:       []int{GenreComedy, GenreFamily},
	},
	{
		name: "sad",
		patterns: []weightedPattern{
			{"sad", 8}, {"tearjerker", 10}, {"cry", 7}, {"emotional", 6},
			{"heartbreaking", 10}, {"melancholy", 9}, {"tragic", 8},
			{"depressing", 8},
		},
		antiPatterns: []string{"happy", "funny", "uplifting", "feel good"},
		penalty:      6,
		genres:       []int{GenreDrama},
	},
	{
		name: "excited",
		patterns: []weightedPattern{
			{"action packed", 10}, {"action-packed", 10}, {"exciting", 8},
			{"adrenaline", 9}, {"explosions", 8}, {"fast paced", 8},
			{"fast-paced", 8}, {"thrilling", 6}, {"epic", 5}, {"action", 6},
		},
		antiPatterns: []string{"slow", "quiet", "calm", "relaxing"},
		penalty:      5,
		genres:       []int{GenreAction, GenreAdventure},
	},
	{
		name: "scared",
		patterns: []weightedPattern{
			{"scary", 9}, {"horror", 10}, {"terrifying", 10}, {"creepy", 8},
			{"frightening", 9}, {"haunted", 8}, {"spooky", 8},
			{"nightmare", 6}, {"zombie", 7}, {"ghost", 6},
		},
		antiPatterns: []string{"not scary", "not too scary", "family friendly", "for kids"},
		penalty:      12,
		genres:       []int{GenreHorror, GenreThriller},
	},
	{
		name: "romantic",
		patterns: []weightedPattern{
			{"romantic", 10}, {"romance", 10}, {"love story", 10},
			{"date night", 9}, {"falling in love", 9}, {"love", 5},
		},
		antiPatterns: []string{"no romance", "without romance"},
		penalty:      12,
		genres:       []int{GenreRomance, GenreComedy},
	},
	{
		name: "funny",
		patterns: []weightedPattern{
			{"funny", 9}, {"hilarious", 10}, {"comedy", 10}, {"laugh", 8},
			{"silly", 7}, {"parody", 8}, {"satire", 7}, {"witty", 7},
		},
		antiPatterns: []string{"serious", "dark", "drama"},
		penalty:      4,
		genres:       []int{GenreComedy},
	},
	{
		name: "tense",
		patterns: []weightedPattern{
			{"suspense", 10}, {"suspenseful", 10}, {"thriller", 10},
			{"edge of my seat", 10}, {"edge of your seat", 10},
			{"tense", 8}, {"mystery", 8}, {"twist", 7}, {"whodunit", 9},
		},
		antiPatterns: []string{"relaxing", "lighthearted", "light-hearted"},
		penalty:      5,
		genres:       []int{GenreThriller, GenreMystery},
	},
	{
		name: "thoughtful",
		patterns: []weightedPattern{
			{"thought provoking", 10}, {"thought-provoking", 10},
			{"makes you think", 10}, {"philosophical", 9}, {"deep", 5},
			{"cerebral", 9}, {"meaningful", 7}, {"slow burn", 7},
		},
		antiPatterns: []string{"mindless", "dumb fun", "turn my brain off"},
		penalty:      8,
		genres:       []int{GenreDrama, GenreDocumentary},
	},
}

// GenresForMood returns the pre-mapped genre hints for a mood name, used
// by the mood-only search path.
func GenresForMood(mood string) []int {
	for _, entry := range moodLexicon {
		if entry.name == mood {
			return entry.genres
		}
	}
	return nil
}

// themeLexicon sets are non-exclusive; a query may carry several themes.
var themeLexicon = map[string][]string{
	"time-travel":   {"time travel", "time-travel", "time loop", "ages backwards", "aging backwards", "ages in reverse"},
	"heist":         {"heist", "robbery", "bank job", "con artist", "caper"},
	"space":         {"space", "astronaut", "galaxy", "alien", "spaceship", "mars"},
	"war":           {"war", "soldier", "battlefield", "wwii", "world war"},
	"crime":         {"crime", "gangster", "mafia", "detective", "murder", "serial killer"},
	"coming-of-age": {"coming of age", "coming-of-age", "growing up", "teenager", "high school"},
	"revenge":       {"revenge", "vengeance", "payback"},
	"survival":      {"survival", "stranded", "wilderness", "apocalypse", "post-apocalyptic"},
	"sports":        {"sports", "boxing", "underdog", "championship", "olympics"},
	"music":         {"musician", "band", "concert", "singer", "rock star"},
	"family":        {"family", "father", "mother", "brother", "sister", "son", "daughter"},
	"true-story":    {"true story", "based on a true", "biopic", "real events"},
}

// themeGenres adds genre hints implied by a detected theme.
var themeGenres = map[string][]int{
	"heist":       {GenreCrime, GenreThriller},
	"space":       {GenreSciFi},
	"war":         {GenreWar, GenreDrama},
	"crime":       {GenreCrime},
	"revenge":     {GenreAction, GenreThriller},
	"survival":    {GenreAdventure, GenreThriller},
	"music":       {GenreMusic},
	"true-story":  {GenreHistory, GenreDrama},
	"time-travel": {GenreSciFi},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"it": true, "this": true, "that": true, "are": true, "was": true,
	"be": true, "has": true, "had": true, "do": true, "does": true,
	"i": true, "me": true, "my": true, "you": true, "we": true,
	"movie": true, "movies": true, "film": true, "films": true,
	"show": true, "shows": true, "series": true, "something": true,
	"watch": true, "watching": true, "about": true, "like": true,
	"want": true, "good": true, "best": true, "some": true,
	"from": true, "who": true, "what": true, "where": true,
}

// recencyTerms signal a preference for new releases.
var recencyTerms = []string{"recent", "latest", "new release", "newest", "just came out", "this year"}

// classicTerms signal a pre-1980 era preference.
var classicTerms = []string{"classic", "golden age", "old hollywood", "black and white"}
