package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewGeminiClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  Config{APIKey: "test-api-key"},
			wantErr: false,
		},
		{
			name:    "missing API key",
			config:  Config{BaseURL: "https://generativelanguage.googleapis.com"},
			wantErr: true,
		},
		{
			name: "custom config",
			config: Config{
				APIKey:       "test-api-key",
				Model:        "gemini-2.5-pro",
				RateLimitRPM: 100,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewGeminiClient(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGeminiClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && client == nil {
				t.Error("NewGeminiClient() returned nil client")
			}
		})
	}
}

func mockGeminiServer(t *testing.T, text string, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt64(calls, 1)
		}
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("expected x-goog-api-key header")
		}

		resp := Response{
			Candidates: []ResponseCandidate{
				{Content: Content{Role: "model", Parts: []Part{{Text: text}}}},
			},
			UsageMetadata: UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 7},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiClient_Complete(t *testing.T) {
	server := mockGeminiServer(t, "hello from the model", nil)
	defer server.Close()

	client, err := NewGeminiClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
	})
	if err != nil {
		t.Fatalf("NewGeminiClient() error = %v", err)
	}

	text, usage, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hello from the model" {
		t.Errorf("text = %q", text)
	}
	if usage == nil || usage.InputTokens != 12 || usage.OutputTokens != 7 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestGeminiClient_Complete_Caching(t *testing.T) {
	var calls int64
	server := mockGeminiServer(t, "cached answer", &calls)
	defer server.Close()

	client, err := NewGeminiClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		text, _, err := client.Complete(context.Background(), "sys", "same prompt")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if text != "cached answer" {
			t.Errorf("text = %q", text)
		}
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1 (cache should absorb repeats)", got)
	}

	m := client.GetMetrics()
	if m.CacheHits != 2 {
		t.Errorf("CacheHits = %d, want 2", m.CacheHits)
	}
}

func TestGeminiClient_CompleteJSON(t *testing.T) {
	server := mockGeminiServer(t, "```json\n[{\"title\":\"JEE Main\",\"url\":\"https://jeemain.nta.nic.in\",\"score\":0.9}]\n```", nil)
	defer server.Close()

	client, err := NewGeminiClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
	})
	if err != nil {
		t.Fatal(err)
	}

	var result []map[string]interface{}
	if _, err := client.CompleteJSON(context.Background(), "sys", "user", &result); err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if len(result) != 1 || result[0]["url"] != "https://jeemain.nta.nic.in" {
		t.Errorf("result = %v", result)
	}
}

func TestGeminiClient_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewGeminiClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "code block",
			in:   "Here you go:\n```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "array with prose",
			in:   `The answer is [1, 2, 3] as requested`,
			want: `[1, 2, 3]`,
		},
		{
			name: "nested braces in strings",
			in:   `{"text": "has } brace"}`,
			want: `{"text": "has } brace"}`,
		},
		{
			name: "no JSON",
			in:   "sorry, I cannot help with that",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
