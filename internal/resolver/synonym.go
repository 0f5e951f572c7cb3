package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/registry"
)

// DefaultSynonyms maps canonical form keys to common phrasings
var DefaultSynonyms = map[string][]string{
	"epaytax": {"e pay tax", "pay tax", "income tax e-pay", "eportal tax", "epay tax"},
	"everify": {"e verify", "everify", "verify return", "e-verify return", "itr verify"},
	"jee":     {"jee main", "nta jee", "jee form"},
}

// SynonymStrategy matches fixed phrases as substrings of the normalized text
type SynonymStrategy struct {
	synonyms map[string][]string
}

// NewSynonymStrategy creates a synonym strategy with the given lexicon.
// A nil lexicon falls back to DefaultSynonyms.
func NewSynonymStrategy(synonyms map[string][]string) *SynonymStrategy {
	if synonyms == nil {
		synonyms = DefaultSynonyms
	}
	return &SynonymStrategy{synonyms: synonyms}
}

// Name returns the strategy source identifier
func (s *SynonymStrategy) Name() domain.Source {
	return domain.SourceSynonym
}

// Resolve emits one candidate per canonical form whose synonym phrase occurs
// in the text. Canonical keys are walked in sorted order so the output is
// deterministic; the first matching phrase per form wins.
func (s *SynonymStrategy) Resolve(ctx context.Context, text string, reg *registry.Registry) ([]domain.Candidate, error) {
	nt := NormalizeText(text)

	canonicals := make([]string, 0, len(s.synonyms))
	for canonical := range s.synonyms {
		canonicals = append(canonicals, canonical)
	}
	sort.Strings(canonicals)

	seen := make(map[string]bool)
	var cands []domain.Candidate
	for _, canonical := range canonicals {
		for _, phrase := range s.synonyms[canonical] {
			if !strings.Contains(nt, phrase) {
				continue
			}
			entry, ok := reg.Get(canonical)
			if !ok || entry.URL == "" || seen[entry.URL] {
				break
			}
			seen[entry.URL] = true
			cands = append(cands, domain.Candidate{
				URL:    entry.URL,
				Title:  "Synonym match: " + phrase,
				Score:  0.7,
				Source: domain.SourceSynonym,
				Debug:  map[string]interface{}{"synonym": phrase},
			})
			break
		}
	}

	return cands, nil
}
