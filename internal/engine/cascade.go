package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/priyamehta/screenscout/internal/models"
	"github.com/priyamehta/screenscout/internal/observability"
)

// tier is one complete pipeline attempt inside the cascade.
type tier struct {
	name string
	run  func(ctx context.Context) (*models.SearchResult, error)
}

// runCascade tries each tier in order, advancing on error, panic, or an
// empty item list (unless the tier is the last one). It always returns a
// well-formed result; when every tier fails the terminal result carries
// empty items, confidence zero and the degraded flag.
func (e *Engine) runCascade(ctx context.Context, tiers []tier) *models.SearchResult {
	for i, t := range tiers {
		last := i == len(tiers)-1

		res, err := runProtected(ctx, t)
		switch {
		case err != nil:
			observability.FallbackCounter.WithLabelValues(t.name, "error").Inc()
			e.logger.Warn("tier failed, cascading",
				zap.String("tier", t.name),
				zap.Bool("last", last),
				zap.Error(err))
		case len(res.Items) == 0 && !last:
			observability.FallbackCounter.WithLabelValues(t.name, "empty").Inc()
			e.logger.Info("tier returned nothing, cascading", zap.String("tier", t.name))
		default:
			return res
		}
	}

	return &models.SearchResult{
		Items:       []models.ScoredCandidate{},
		Explanation: buildExplanation(nil, TierNone, "", 0),
		Confidence:  0,
		Tier:        TierNone,
		Degraded:    true,
	}
}

// runProtected converts a tier panic into a tier failure so a bug in one
// tier degrades the response instead of killing the request.
func runProtected(ctx context.Context, t tier) (res *models.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("tier %s panicked: %v", t.name, r)
		}
	}()
	return t.run(ctx)
}
