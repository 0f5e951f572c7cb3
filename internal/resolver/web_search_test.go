package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/registry"
	"github.com/formnav/formnav/internal/search"
)

type fakeSearch struct {
	results    []search.Result
	err        error
	query      string
	maxResults int
}

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	f.query = query
	f.maxResults = maxResults
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > maxResults {
		return f.results[:maxResults], nil
	}
	return f.results, nil
}

func TestWebSearchStrategy_Resolve(t *testing.T) {
	client := &fakeSearch{results: []search.Result{
		{URL: "https://eportal.incometax.gov.in/iec/foservices", Title: "e-Pay Tax"},
		{URL: "https://someblog.example/how-to-pay-tax", Title: "Blog post"},
		{URL: "not a url", Title: "junk"},
	}}
	strat := NewWebSearchStrategy(client, []string{".gov.in", "nta.ac.in"}, 0, nil)

	cands, err := strat.Resolve(context.Background(), "  Pay   Income Tax ", registry.FromMap(nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if client.query != "pay income tax" {
		t.Errorf("search query = %q, want normalized text", client.query)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 (junk URL dropped)", len(cands))
	}
	if cands[0].Score != webSearchBaseScore+govDomainBoost {
		t.Errorf("gov domain score = %v, want base plus boost", cands[0].Score)
	}
	if cands[1].Score != webSearchBaseScore {
		t.Errorf("non-gov score = %v, want base %v", cands[1].Score, webSearchBaseScore)
	}
	if cands[0].Source != domain.SourceWebSearch {
		t.Errorf("Source = %s", cands[0].Source)
	}
}

func TestWebSearchStrategy_MaxResults(t *testing.T) {
	client := &fakeSearch{}
	strat := NewWebSearchStrategy(client, nil, 3, nil)

	if _, err := strat.Resolve(context.Background(), "pay tax", registry.FromMap(nil)); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if client.maxResults != 3 {
		t.Errorf("search asked for %d results, want configured 3", client.maxResults)
	}

	client = &fakeSearch{}
	strat = NewWebSearchStrategy(client, nil, 0, nil)

	if _, err := strat.Resolve(context.Background(), "pay tax", registry.FromMap(nil)); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if client.maxResults != defaultMaxSearchResults {
		t.Errorf("search asked for %d results, want default %d", client.maxResults, defaultMaxSearchResults)
	}
}

func TestWebSearchStrategy_DegradesOnFailure(t *testing.T) {
	strat := NewWebSearchStrategy(&fakeSearch{err: errors.New("rate limited")}, nil, 0, nil)

	cands, err := strat.Resolve(context.Background(), "anything", registry.FromMap(nil))
	if err != nil {
		t.Errorf("Resolve() error = %v, search strategy must degrade silently", err)
	}
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0", len(cands))
	}
}

func TestWebSearchStrategy_NilClient(t *testing.T) {
	strat := NewWebSearchStrategy(nil, nil, 0, nil)

	cands, err := strat.Resolve(context.Background(), "anything", registry.FromMap(nil))
	if err != nil || len(cands) != 0 {
		t.Errorf("Resolve() = (%v, %v), want empty and nil error", cands, err)
	}
}

func TestWebSearchStrategy_IsGovDomain(t *testing.T) {
	strat := NewWebSearchStrategy(nil, []string{".gov.in", "nta.ac.in", "nic.in"}, 0, nil)

	tests := []struct {
		url  string
		want bool
	}{
		{"https://eportal.incometax.gov.in/iec", true},
		{"https://jeemain.nta.ac.in", true},
		{"https://services.india.nic.in/page", true},
		{"https://GOV.in.phishing.example", false},
		{"https://example.com", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := strat.isGovDomain(tt.url); got != tt.want {
			t.Errorf("isGovDomain(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
