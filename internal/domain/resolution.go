package domain

import "time"

// Source identifies the strategy that produced a candidate
type Source string

const (
	SourceKnownForms Source = "known_forms"
	SourceSynonym    Source = "synonym"
	SourceAIIntent   Source = "ai_intent"
	SourceWebSearch  Source = "web_search"
)

// Candidate is a scored URL hypothesis produced by one resolution strategy.
// Verify and Navigation are attached by later pipeline stages; everything
// else is immutable after creation.
type Candidate struct {
	URL    string                 `json:"url"`
	Title  string                 `json:"title"`
	Score  float64                `json:"score"`
	Source Source                 `json:"source"`
	Debug  map[string]interface{} `json:"debug,omitempty"`

	Verify     *VerifyResult     `json:"verify,omitempty"`
	Navigation *NavigationResult `json:"navigation,omitempty"`
}

// VerifyResult is the outcome of a liveness check on one candidate URL
type VerifyResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// NavigationResult is the outcome of one navigator run
type NavigationResult struct {
	Found      bool     `json:"found"`
	FinalURL   string   `json:"final_url"`
	Reason     string   `json:"reason"`
	NeedsLogin bool     `json:"needs_login"`
	Steps      []string `json:"steps"`
}

// ResolutionResult is the externally visible output of a resolution call.
// Selected is nil only when no candidates were generated at all.
type ResolutionResult struct {
	ID         string        `json:"id,omitempty"`
	Query      string        `json:"query"`
	Candidates []Candidate   `json:"candidates"`
	Selected   *Candidate    `json:"selected,omitempty"`
	NeedsLogin bool          `json:"needs_login"`
	Duration   time.Duration `json:"duration"`
}

// ClampScore bounds a candidate score to [lo, hi]
func ClampScore(score, lo, hi float64) float64 {
	if score < lo {
		return lo
	}
	if score > hi {
		return hi
	}
	return score
}
