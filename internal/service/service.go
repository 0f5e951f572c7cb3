package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/observability"
	"github.com/formnav/formnav/internal/registry"
	"github.com/formnav/formnav/internal/resolver"
)

// Verifier checks that a candidate URL is live and not a refusal page
type Verifier interface {
	Verify(ctx context.Context, rawURL string) domain.VerifyResult
}

// Navigator walks from a candidate URL toward a fillable form
type Navigator interface {
	Navigate(ctx context.Context, startURL string, headless bool) *domain.NavigationResult
}

// AuditStore records finished resolutions for later inspection
type AuditStore interface {
	RecordResolution(ctx context.Context, res *domain.ResolutionResult) error
}

// Options controls how far a resolution goes. Zero value means rank
// candidates only, no browser involvement.
type Options struct {
	// Verify opens each top candidate headlessly and keeps the first
	// that loads a real page.
	Verify bool
	// Navigate walks each top candidate toward a fillable form. Implies
	// browser use; Verify is redundant when set.
	Navigate bool
	// Headless controls the navigation browser. A visible browser lets
	// a person complete login walls.
	Headless bool
	// Timeout bounds candidate generation. It does not bound
	// interactive navigation, which has its own login wait ceiling.
	Timeout time.Duration
}

// Service orchestrates candidate generation, verification and
// navigation into a single resolution
type Service struct {
	aggregator    *resolver.Aggregator
	registry      *registry.Registry
	verifier      Verifier
	navigator     Navigator
	audit         AuditStore
	metrics       *observability.Metrics
	maxCandidates int
	logger        *zap.Logger
}

// New creates the resolution service. verifier, navigator, audit and
// metrics may be nil; the corresponding stages are skipped.
func New(agg *resolver.Aggregator, reg *registry.Registry, verifier Verifier, navigator Navigator, audit AuditStore, metrics *observability.Metrics, maxCandidates int, logger *zap.Logger) *Service {
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		aggregator:    agg,
		registry:      reg,
		verifier:      verifier,
		navigator:     navigator,
		audit:         audit,
		metrics:       metrics,
		maxCandidates: maxCandidates,
		logger:        logger,
	}
}

// ResolveFormURL turns free text into a ranked, optionally verified and
// navigated, form URL resolution. The result always carries all
// candidates; Selected is nil only when no strategy produced anything.
func (s *Service) ResolveFormURL(ctx context.Context, text string, opts Options) (*domain.ResolutionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrValidation("text must not be empty")
	}

	start := time.Now()
	res := &domain.ResolutionResult{
		ID:    uuid.New().String(),
		Query: text,
	}

	genCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res.Candidates = s.aggregator.Resolve(genCtx, text, s.registry)
	s.countBySource(res.Candidates)

	if len(res.Candidates) == 0 {
		res.Duration = time.Since(start)
		s.record(ctx, res, "no_candidates")
		return res, nil
	}

	switch {
	case opts.Navigate && s.navigator != nil:
		s.navigate(ctx, res, opts.Headless)
	case opts.Verify && s.verifier != nil:
		s.verify(genCtx, res)
	default:
		res.Selected = &res.Candidates[0]
	}

	// Never leave the caller empty-handed when we have candidates; a
	// failed walk still yields the best guess.
	if res.Selected == nil {
		res.Selected = &res.Candidates[0]
	}

	res.Duration = time.Since(start)

	status := "not_found"
	if res.Selected.Navigation != nil && res.Selected.Navigation.Found {
		status = "found"
	} else if res.Selected.Verify != nil && res.Selected.Verify.OK {
		status = "found"
	} else if !opts.Verify && !opts.Navigate {
		status = "found"
	}
	s.record(ctx, res, status)

	return res, nil
}

// navigate walks the top candidates in rank order and selects the first
// one that reaches a fillable form. Sessions run one at a time.
func (s *Service) navigate(ctx context.Context, res *domain.ResolutionResult, headless bool) {
	for i := range res.Candidates[:s.top(len(res.Candidates))] {
		cand := &res.Candidates[i]

		nav := s.navigator.Navigate(ctx, cand.URL, headless)
		cand.Navigation = nav
		if s.metrics != nil {
			s.metrics.RecordNavigation(nav.Found, nav.NeedsLogin)
		}
		if nav.NeedsLogin {
			res.NeedsLogin = true
		}

		s.logger.Info("candidate navigated",
			zap.String("url", cand.URL),
			zap.String("source", string(cand.Source)),
			zap.Bool("found", nav.Found),
			zap.String("reason", nav.Reason),
		)

		if nav.Found {
			res.Selected = cand
			return
		}
		if err := ctx.Err(); err != nil {
			return
		}
	}
}

// verify keeps the first top candidate that loads a real page
func (s *Service) verify(ctx context.Context, res *domain.ResolutionResult) {
	for i := range res.Candidates[:s.top(len(res.Candidates))] {
		cand := &res.Candidates[i]

		vr := s.verifier.Verify(ctx, cand.URL)
		cand.Verify = &vr
		if s.metrics != nil {
			s.metrics.RecordVerification(vr.OK)
		}

		if vr.OK {
			res.Selected = cand
			return
		}
		if err := ctx.Err(); err != nil {
			return
		}
	}
}

func (s *Service) top(n int) int {
	if n > s.maxCandidates {
		return s.maxCandidates
	}
	return n
}

func (s *Service) countBySource(cands []domain.Candidate) {
	if s.metrics == nil {
		return
	}
	counts := make(map[domain.Source]int)
	for _, c := range cands {
		counts[c.Source]++
	}
	for src, n := range counts {
		s.metrics.RecordStrategyCandidates(string(src), n)
	}
}

// record emits metrics and writes the audit row. Audit failures are
// logged, never surfaced.
func (s *Service) record(ctx context.Context, res *domain.ResolutionResult, status string) {
	if s.metrics != nil {
		s.metrics.RecordResolution(status, res.Duration)
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordResolution(ctx, res); err != nil {
		s.logger.Warn("recording resolution failed", zap.Error(err))
	}
}
