package engine

import "github.com/priyamehta/screenscout/internal/models"

// dedupeCandidates collapses the merged strategy output to one candidate
// per catalog id, keeping the first occurrence's full payload. Order is
// preserved so later score ties break by insertion order.
func dedupeCandidates(items []models.Candidate) []models.Candidate {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(items))
	out := items[:0:0]
	for _, c := range items {
		if seen[c.CatalogID] {
			continue
		}
		seen[c.CatalogID] = true
		out = append(out, c)
	}
	return out
}
