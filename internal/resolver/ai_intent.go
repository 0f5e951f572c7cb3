package resolver

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/llm"
	"github.com/formnav/formnav/internal/registry"
)

const maxAICandidates = 5

// LLMClient is the language-model collaborator consumed by AI strategies
type LLMClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, result interface{}) (*llm.Usage, error)
}

// AIIntentStrategy asks the language model to propose official form URLs
type AIIntentStrategy struct {
	llm    LLMClient
	logger *zap.Logger
}

// NewAIIntentStrategy creates an AI-intent strategy
func NewAIIntentStrategy(client LLMClient, logger *zap.Logger) *AIIntentStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AIIntentStrategy{llm: client, logger: logger}
}

// Name returns the strategy source identifier
func (s *AIIntentStrategy) Name() domain.Source {
	return domain.SourceAIIntent
}

// aiCandidate is the strict response schema expected from the model
type aiCandidate struct {
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

const aiIntentSystemPrompt = `You are a smart URL resolver for government and institutional forms in India.
Given a user request, identify the most likely form and propose up to 5 official URLs to start the process.
Prefer official government domains when applicable.
Respond strictly as a JSON array of objects with fields:
[{"title":"...","url":"...","score":0.0,"reason":"..."}]`

// Resolve proposes up to 5 URL candidates via the language model. Any
// failure (network, parse, schema) degrades to an empty list; this strategy
// never returns an error.
func (s *AIIntentStrategy) Resolve(ctx context.Context, text string, reg *registry.Registry) ([]domain.Candidate, error) {
	if s.llm == nil {
		return nil, nil
	}

	userPrompt := fmt.Sprintf("User request: %s\nKnown form keys (for preference if relevant): %s",
		text, strings.Join(reg.Keys(), ", "))

	var items []aiCandidate
	if _, err := s.llm.CompleteJSON(ctx, aiIntentSystemPrompt, userPrompt, &items); err != nil {
		s.logger.Debug("AI intent strategy degraded to empty", zap.Error(err))
		return nil, nil
	}

	if len(items) > maxAICandidates {
		items = items[:maxAICandidates]
	}

	seen := make(map[string]bool)
	var cands []domain.Candidate
	for _, item := range items {
		if !validCandidateURL(item.URL) || seen[item.URL] {
			continue
		}
		seen[item.URL] = true

		title := item.Title
		if title == "" {
			title = "AI candidate"
		}
		cands = append(cands, domain.Candidate{
			URL:    item.URL,
			Title:  title,
			Score:  domain.ClampScore(item.Score, 0, 0.95),
			Source: domain.SourceAIIntent,
			Debug:  map[string]interface{}{"reason": item.Reason},
		})
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	return cands, nil
}

// validCandidateURL rejects anything that is not an absolute http(s) URL
func validCandidateURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
