package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/service"
)

type stubResolver struct {
	res  *domain.ResolutionResult
	err  error
	text string
	opts service.Options
}

func (s *stubResolver) ResolveFormURL(ctx context.Context, text string, opts service.Options) (*domain.ResolutionResult, error) {
	s.text = text
	s.opts = opts
	return s.res, s.err
}

type stubStore struct {
	byID map[uuid.UUID]*domain.ResolutionResult
	list []*domain.ResolutionResult
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ResolutionResult, error) {
	if res, ok := s.byID[id]; ok {
		return res, nil
	}
	return nil, domain.NewError(domain.ErrCodeBadRequest, "resolution not found", http.StatusNotFound)
}

func (s *stubStore) List(ctx context.Context, limit, offset int) ([]*domain.ResolutionResult, int, error) {
	return s.list, len(s.list), nil
}

func sampleResult() *domain.ResolutionResult {
	res := &domain.ResolutionResult{
		ID:    uuid.NewString(),
		Query: "fill the jee form",
		Candidates: []domain.Candidate{
			{URL: "https://jeemain.nta.ac.in", Title: "JEE Main", Score: 0.75, Source: domain.SourceKnownForms},
		},
	}
	res.Selected = &res.Candidates[0]
	return res
}

func TestResolveHandler_Resolve(t *testing.T) {
	resolver := &stubResolver{res: sampleResult()}
	h := NewResolveHandler(resolver, nil, nil)

	body := `{"text": "fill the jee form", "navigate": true, "timeout_seconds": 30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resolver.text != "fill the jee form" {
		t.Errorf("resolver text = %q", resolver.text)
	}
	if !resolver.opts.Navigate || !resolver.opts.Headless {
		t.Errorf("opts = %+v, want navigate headless", resolver.opts)
	}
	if resolver.opts.Timeout.Seconds() != 30 {
		t.Errorf("timeout = %v", resolver.opts.Timeout)
	}

	var resp struct {
		Success bool                    `json:"success"`
		Data    domain.ResolutionResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Success || resp.Data.Selected == nil || resp.Data.Selected.URL != "https://jeemain.nta.ac.in" {
		t.Errorf("response = %+v", resp)
	}
}

func TestResolveHandler_ResolveValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"text": "   "}`},
		{"missing text", `{}`},
		{"invalid json", `{`},
		{"unknown field", `{"text": "x", "mode": "fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewResolveHandler(&stubResolver{res: sampleResult()}, nil, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Resolve(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestResolveHandler_Get(t *testing.T) {
	res := sampleResult()
	id := uuid.MustParse(res.ID)
	h := NewResolveHandler(&stubResolver{}, &stubStore{byID: map[uuid.UUID]*domain.ResolutionResult{id: res}}, nil)

	r := chi.NewRouter()
	r.Get("/api/v1/resolutions/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resolutions/"+res.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/resolutions/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/resolutions/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
}

func TestResolveHandler_ListWithoutStore(t *testing.T) {
	h := NewResolveHandler(&stubResolver{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resolutions", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when history disabled", rec.Code)
	}
}

func TestResolveHandler_List(t *testing.T) {
	h := NewResolveHandler(&stubResolver{}, &stubStore{list: []*domain.ResolutionResult{sampleResult(), sampleResult()}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resolutions?page=1&per_page=10", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success bool                        `json:"success"`
		Data    []domain.ResolutionResult   `json:"data"`
		Meta    struct{ Total int }         `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Data) != 2 || resp.Meta.Total != 2 {
		t.Errorf("data = %d items, total = %d", len(resp.Data), resp.Meta.Total)
	}
}
