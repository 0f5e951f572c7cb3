package resolver

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/registry"
)

// Strategy generates URL candidates from free text. Strategies are pure
// with respect to shared state and callable in any order.
type Strategy interface {
	Name() domain.Source
	Resolve(ctx context.Context, text string, reg *registry.Registry) ([]domain.Candidate, error)
}

// Aggregator runs strategies in a fixed priority order and merges their
// candidates. The first occurrence of a URL wins, so deterministic cheap
// strategies beat speculative ones on ties.
type Aggregator struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewAggregator creates an aggregator over the given strategies, in
// priority order
func NewAggregator(strategies []Strategy, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{strategies: strategies, logger: logger}
}

// Resolve merges candidates from all strategies, deduplicated by URL with
// first occurrence winning, sorted by score descending (stable, so ties
// keep encounter order). A failing strategy contributes nothing; it never
// aborts the aggregation.
func (a *Aggregator) Resolve(ctx context.Context, text string, reg *registry.Registry) []domain.Candidate {
	seen := make(map[string]bool)
	var all []domain.Candidate

	for _, strat := range a.strategies {
		cands, err := strat.Resolve(ctx, text, reg)
		if err != nil {
			a.logger.Warn("candidate strategy failed",
				zap.String("strategy", string(strat.Name())),
				zap.Error(err),
			)
			continue
		}

		for _, cand := range cands {
			if cand.URL == "" || seen[cand.URL] {
				continue
			}
			seen[cand.URL] = true
			cand.Score = domain.ClampScore(cand.Score, 0, 1)
			all = append(all, cand)
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	return all
}
