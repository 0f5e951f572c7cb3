package navigator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/browser"
	"github.com/formnav/formnav/internal/domain"
)

// Verifier checks that a candidate URL is actually reachable and not a
// refusal page. Each check runs in its own headless session that is
// always released.
type Verifier struct {
	factory browser.SessionFactory
	det     *Detector
	logger  *zap.Logger
}

// NewVerifier creates a verifier
func NewVerifier(factory browser.SessionFactory, det *Detector, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{factory: factory, det: det, logger: logger}
}

// Verify opens the URL and classifies the landing page. It never
// returns an error; unreachable or refused pages come back as a failed
// result with the reason attached.
func (v *Verifier) Verify(ctx context.Context, rawURL string) domain.VerifyResult {
	sess, err := v.factory.NewSession(ctx, true)
	if err != nil {
		return domain.VerifyResult{OK: false, Reason: fmt.Sprintf("browser session: %v", err)}
	}
	defer sess.Close()

	if err := sess.Open(ctx, rawURL); err != nil {
		return domain.VerifyResult{OK: false, Reason: fmt.Sprintf("navigation failed: %v", err)}
	}

	title, err := sess.Title()
	if err != nil {
		return domain.VerifyResult{OK: false, Reason: fmt.Sprintf("reading title: %v", err)}
	}
	if strings.TrimSpace(title) == "" {
		return domain.VerifyResult{OK: false, Reason: "empty page title"}
	}

	content, err := sess.Content()
	if err != nil {
		return domain.VerifyResult{OK: false, Reason: fmt.Sprintf("reading content: %v", err)}
	}
	if blocked, kw := v.det.Blocked(title, content); blocked {
		return domain.VerifyResult{OK: false, Reason: fmt.Sprintf("blocked: %s", kw)}
	}

	v.logger.Debug("candidate verified", zap.String("url", rawURL), zap.String("title", title))
	return domain.VerifyResult{OK: true, Reason: "reachable"}
}
