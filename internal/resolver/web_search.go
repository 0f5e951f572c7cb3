package resolver

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/registry"
	"github.com/formnav/formnav/internal/search"
)

const (
	webSearchBaseScore      = 0.55
	govDomainBoost          = 0.15
	webSearchScoreCap       = 0.8
	defaultMaxSearchResults = 6
)

// SearchClient is the web search collaborator consumed by the web-search strategy
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// WebSearchStrategy queries an external search provider and lightly biases
// results toward government domains
type WebSearchStrategy struct {
	client      SearchClient
	govPatterns []string
	maxResults  int
	logger      *zap.Logger
}

// NewWebSearchStrategy creates a web-search strategy. govPatterns is the
// host-substring allowlist that earns the government-domain boost, and
// maxResults caps how many results are requested per query (<= 0 uses the
// default).
func NewWebSearchStrategy(client SearchClient, govPatterns []string, maxResults int, logger *zap.Logger) *WebSearchStrategy {
	if maxResults <= 0 {
		maxResults = defaultMaxSearchResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearchStrategy{client: client, govPatterns: govPatterns, maxResults: maxResults, logger: logger}
}

// Name returns the strategy source identifier
func (s *WebSearchStrategy) Name() domain.Source {
	return domain.SourceWebSearch
}

// Resolve turns search results into scored candidates. A failing search
// provider degrades to an empty list.
func (s *WebSearchStrategy) Resolve(ctx context.Context, text string, reg *registry.Registry) ([]domain.Candidate, error) {
	if s.client == nil {
		return nil, nil
	}

	results, err := s.client.Search(ctx, NormalizeText(text), s.maxResults)
	if err != nil {
		s.logger.Debug("web search strategy degraded to empty", zap.Error(err))
		return nil, nil
	}

	var cands []domain.Candidate
	for _, res := range results {
		if !validCandidateURL(res.URL) {
			continue
		}

		score := webSearchBaseScore
		if s.isGovDomain(res.URL) {
			score += govDomainBoost
		}

		title := res.Title
		if title == "" {
			title = "search result"
		}
		cands = append(cands, domain.Candidate{
			URL:    res.URL,
			Title:  title,
			Score:  domain.ClampScore(score, 0, webSearchScoreCap),
			Source: domain.SourceWebSearch,
			Debug:  map[string]interface{}{"engine": "ddg"},
		})
	}

	return cands, nil
}

// isGovDomain reports whether the URL host matches the allowlist
func (s *WebSearchStrategy) isGovDomain(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Host)
	for _, pattern := range s.govPatterns {
		if pattern != "" && strings.Contains(host, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
