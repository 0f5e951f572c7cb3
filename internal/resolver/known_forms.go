package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/registry"
)

// KnownFormsStrategy matches user text against registry keys by token overlap
type KnownFormsStrategy struct{}

// NewKnownFormsStrategy creates a known-forms strategy
func NewKnownFormsStrategy() *KnownFormsStrategy {
	return &KnownFormsStrategy{}
}

// Name returns the strategy source identifier
func (s *KnownFormsStrategy) Name() domain.Source {
	return domain.SourceKnownForms
}

// Resolve scores each registry key by how many of its tokens appear in the
// user text. Any overlap yields a candidate; more overlapping tokens score
// higher, capped at 0.8.
func (s *KnownFormsStrategy) Resolve(ctx context.Context, text string, reg *registry.Registry) ([]domain.Candidate, error) {
	tokens := Tokens(NormalizeText(text))

	var cands []domain.Candidate
	for _, key := range reg.Keys() {
		entry, _ := reg.Get(key)
		if entry.URL == "" {
			continue
		}

		overlap := 0
		for _, part := range strings.Split(key, "_") {
			if tokens[part] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}

		score := 0.6 + 0.05*float64(min(overlap, 4))
		cands = append(cands, domain.Candidate{
			URL:    entry.URL,
			Title:  "Known form: " + key,
			Score:  domain.ClampScore(score, 0, 0.8),
			Source: domain.SourceKnownForms,
			Debug: map[string]interface{}{
				"matched_key": key,
				"overlap":     overlap,
			},
		})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	return cands, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
