package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const resultsHTML = `<html><body>
<div class="result">
  <a class="result__a" href="https://jeemain.nta.nic.in">JEE Main - NTA</a>
</div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Feportal.incometax.gov.in%2F">e-Filing portal</a>
</div>
<div class="result">
  <a class="result__a" href="javascript:void(0)">Junk</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/three">Three</a>
</div>
</body></html>`

func TestDuckDuckGoClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "pay income tax" {
			t.Errorf("query = %q, want %q", got, "pay income tax")
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		io.WriteString(w, resultsHTML)
	}))
	defer server.Close()

	client := NewDuckDuckGoClient(Config{
		Endpoint:  server.URL,
		UserAgent: "test-agent",
	})

	results, err := client.Search(context.Background(), "pay income tax", 6)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].URL != "https://jeemain.nta.nic.in" {
		t.Errorf("results[0].URL = %s", results[0].URL)
	}
	if results[0].Title != "JEE Main - NTA" {
		t.Errorf("results[0].Title = %q", results[0].Title)
	}
	// Redirect link should be unwrapped
	if results[1].URL != "https://eportal.incometax.gov.in/" {
		t.Errorf("results[1].URL = %s, want unwrapped redirect target", results[1].URL)
	}
}

func TestDuckDuckGoClient_Search_MaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, resultsHTML)
	}))
	defer server.Close()

	client := NewDuckDuckGoClient(Config{Endpoint: server.URL})

	results, err := client.Search(context.Background(), "anything", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestDuckDuckGoClient_Search_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewDuckDuckGoClient(Config{Endpoint: server.URL})

	if _, err := client.Search(context.Background(), "anything", 6); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://plain.example/page", "https://plain.example/page"},
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Ftarget.example%2F", "https://target.example/"},
		{"//duckduckgo.com/l/?other=1", "//duckduckgo.com/l/?other=1"},
	}

	for _, tt := range tests {
		if got := resolveRedirect(tt.in); got != tt.want {
			t.Errorf("resolveRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
