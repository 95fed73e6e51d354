package engine

import (
	"fmt"

	"github.com/priyamehta/screenscout/internal/models"
)

// Cascade tier names, also used as metric labels.
const (
	TierPrimary   = "primary"
	TierHeuristic = "heuristic"
	TierEmergency = "emergency"
	TierNone      = "none"
)

// buildExplanation renders the human-readable summary for a result. Pure
// function of its inputs; templates are keyed by the winning strategy and
// the tier, so identical searches always explain themselves identically.
func buildExplanation(in *models.Intent, tier, strategyUsed string, found int) string {
	if found == 0 {
		if tier == TierNone {
			return "Search is temporarily unavailable; please try again shortly."
		}
		return "No titles matched; try rephrasing or broadening the query."
	}

	var core string
	switch strategyUsed {
	case "exact_title":
		core = fmt.Sprintf("Found %d titles matching the name you gave", found)
	case "person":
		core = fmt.Sprintf("Found %d titles featuring the people you mentioned", found)
	case "keyword":
		core = fmt.Sprintf("Found %d titles matching your description", found)
	case "genre_discover":
		core = fmt.Sprintf("Picked %d titles from matching genres", found)
	case "trending_fallback":
		core = fmt.Sprintf("Showing %d currently popular titles", found)
	default:
		core = fmt.Sprintf("Found %d titles", found)
	}

	if in != nil {
		switch {
		case in.PrimaryMood != "":
			core += fmt.Sprintf(", tuned for a %s mood", in.PrimaryMood)
		case len(in.Themes) > 0:
			core += fmt.Sprintf(", centered on %s", in.Themes[0])
		}
	}

	switch tier {
	case TierHeuristic:
		core += " (smart analysis was unavailable)"
	case TierEmergency:
		core += " (search is degraded; showing popular titles)"
	}
	return core + "."
}
