package navigator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/browser"
	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/llm"
)

// LLMClient supplies navigation hints when the landing page is not the
// form itself
type LLMClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, result interface{}) (*llm.Usage, error)
}

// ScreenshotSaver persists per-step screenshots of a navigation run
type ScreenshotSaver interface {
	SaveStepScreenshot(ctx context.Context, runID string, step int, data []byte) (string, error)
}

// Config bounds the navigation state machine. The login wait ceiling is
// independent of any per-candidate timeout the caller imposes via
// context; interactive logins routinely outlive network timeouts.
type Config struct {
	MaxAttempts       int
	LoginWaitInterval time.Duration
	LoginWaitMaxPolls int
	MaxLinks          int

	// Pause before re-inspecting a page that yielded no hop; government
	// portals often render their fields late.
	SettleDelay time.Duration
}

// DefaultConfig returns the standard navigation bounds
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		LoginWaitInterval: 5 * time.Second,
		LoginWaitMaxPolls: 36,
		MaxLinks:          30,
		SettleDelay:       2 * time.Second,
	}
}

// Navigator drives a browser session from a landing page toward a
// fillable form, hopping at most MaxAttempts times
type Navigator struct {
	factory browser.SessionFactory
	det     *Detector
	llm     LLMClient
	clock   Clock
	cfg     Config
	shots   ScreenshotSaver
	logger  *zap.Logger
}

// New creates a navigator. llm may be nil, in which case link hops fall
// back to keyword heuristics only.
func New(factory browser.SessionFactory, det *Detector, llmClient LLMClient, clock Clock, cfg Config, logger *zap.Logger) *Navigator {
	if clock == nil {
		clock = NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 30
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	return &Navigator{
		factory: factory,
		det:     det,
		llm:     llmClient,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetScreenshotStore enables per-step screenshots. Failures to store
// are logged, never fatal.
func (n *Navigator) SetScreenshotStore(s ScreenshotSaver) {
	n.shots = s
}

// navHint is the strict response schema expected from the model
type navHint struct {
	Action   string `json:"action"`
	LinkText string `json:"link_text,omitempty"`
	Href     string `json:"href,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

const navHintSystemPrompt = `You are navigating a government website to reach a fillable application form.
Given the current page title and its visible links, decide the next action.
Respond strictly as one JSON object:
{"action":"found|click|login_required|not_found","link_text":"...","href":"...","reason":"..."}
Use "found" only if the current page already is the form. Use "click" with the
exact link_text (or href) of the most promising link. Use "not_found" when no
link plausibly leads to the form.`

// Navigate opens startURL and walks toward a fillable form. The result
// is always non-nil and carries an append-only step trail for
// diagnostics. headless controls whether a login wall aborts (true) or
// waits for a person to complete the login (false).
func (n *Navigator) Navigate(ctx context.Context, startURL string, headless bool) *domain.NavigationResult {
	res := &domain.NavigationResult{}
	step := func(format string, args ...interface{}) {
		res.Steps = append(res.Steps, fmt.Sprintf(format, args...))
	}

	sess, err := n.factory.NewSession(ctx, headless)
	if err != nil {
		res.Reason = fmt.Sprintf("browser session: %v", err)
		return res
	}
	defer sess.Close()

	if err := sess.Open(ctx, startURL); err != nil {
		res.Reason = fmt.Sprintf("navigation failed: %v", err)
		step("open %s failed: %v", startURL, err)
		return res
	}
	step("opened %s", startURL)

	runID := uuid.New().String()
	hopeless := false
loop:
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		n.capture(ctx, sess, runID, attempt)

		title, _ := sess.Title()
		content, err := sess.Content()
		if err != nil {
			res.Reason = fmt.Sprintf("reading content: %v", err)
			return res
		}

		if dead, kw := n.det.DeadEnd(title, content); dead {
			res.Reason = fmt.Sprintf("dead end: %s", kw)
			step("dead end detected (%s)", kw)
			return res
		}
		if blocked, kw := n.det.Blocked(title, content); blocked {
			res.Reason = fmt.Sprintf("blocked: %s", kw)
			step("blocked (%s)", kw)
			return res
		}

		passwords, _ := sess.CountPasswordInputs()
		if n.det.LoginWall(content, passwords) {
			if headless {
				res.NeedsLogin = true
				res.Reason = "login required, retry in visible mode"
				step("login wall in headless mode")
				return res
			}
			step("login wall, waiting for manual login")
			cleared, err := n.waitForLogin(ctx, sess)
			if err != nil {
				res.NeedsLogin = true
				res.Reason = fmt.Sprintf("login wait aborted: %v", err)
				return res
			}
			if !cleared {
				res.NeedsLogin = true
				res.Reason = "login timeout"
				step("login not completed within wait budget")
				return res
			}
			step("login completed")
			continue
		}

		fields, _ := sess.CountFormFields()
		if fields > 0 {
			res.Found = true
			res.FinalURL = sess.CurrentURL()
			res.Reason = fmt.Sprintf("form with %d fields", fields)
			step("form found at %s (%d fields)", res.FinalURL, fields)
			return res
		}

		if attempt == n.cfg.MaxAttempts {
			break
		}
		switch n.hop(ctx, sess, title, step) {
		case hopStop:
			hopeless = true
			break loop
		case hopStuck:
			// Nothing to follow, but the page itself may not be done
			// rendering; wait and inspect it again.
			if err := n.clock.Sleep(ctx, n.cfg.SettleDelay); err != nil {
				res.Reason = fmt.Sprintf("navigation aborted: %v", err)
				return res
			}
		}
	}

	// A page can render fields late or the last hop may have landed on
	// the form; check once more before giving up.
	if fields, err := sess.CountFormFields(); err == nil && fields > 0 {
		res.Found = true
		res.FinalURL = sess.CurrentURL()
		res.Reason = fmt.Sprintf("form with %d fields", fields)
		step("form found at %s (%d fields)", res.FinalURL, fields)
		return res
	}

	if hopeless {
		res.Reason = "no path to a fillable form from this page"
	} else {
		res.Reason = fmt.Sprintf("no fillable form within %d attempts", n.cfg.MaxAttempts)
	}
	return res
}

// capture stores one step screenshot when a store is configured
func (n *Navigator) capture(ctx context.Context, sess browser.Session, runID string, step int) {
	if n.shots == nil {
		return
	}
	data, err := sess.Screenshot()
	if err != nil || len(data) == 0 {
		return
	}
	if _, err := n.shots.SaveStepScreenshot(ctx, runID, step, data); err != nil {
		n.logger.Debug("storing screenshot failed", zap.Error(err))
	}
}

// waitForLogin polls until the login wall clears, the page URL changes
// (a completed login usually redirects) or the wait budget runs out
func (n *Navigator) waitForLogin(ctx context.Context, sess browser.Session) (bool, error) {
	wallURL := sess.CurrentURL()
	return Poll(ctx, n.clock, n.cfg.LoginWaitInterval, n.cfg.LoginWaitMaxPolls, func() (bool, error) {
		if sess.CurrentURL() != wallURL {
			return true, nil
		}
		content, err := sess.Content()
		if err != nil {
			return false, err
		}
		passwords, _ := sess.CountPasswordInputs()
		return !n.det.LoginWall(content, passwords), nil
	})
}

// hopOutcome tells the attempt loop what a hop achieved
type hopOutcome int

const (
	// hopMoved means the session followed a link to a new page
	hopMoved hopOutcome = iota
	// hopStuck means no link was worth following; the current page gets
	// another look on the next attempt
	hopStuck
	// hopStop means the model ruled the page out entirely
	hopStop
)

// hop follows the most promising link, preferring the model's hint and
// falling back to keyword heuristics
func (n *Navigator) hop(ctx context.Context, sess browser.Session, title string, step func(string, ...interface{})) hopOutcome {
	links, err := sess.VisibleLinks(n.cfg.MaxLinks)
	if err != nil || len(links) == 0 {
		step("no links to follow")
		return hopStuck
	}

	if hint := n.askHint(ctx, title, links); hint != nil {
		switch hint.Action {
		case "click":
			if hint.LinkText != "" {
				if err := sess.ClickLinkText(ctx, hint.LinkText); err == nil {
					step("clicked %q (%s)", hint.LinkText, hint.Reason)
					return hopMoved
				}
			}
			if hint.Href != "" {
				if err := sess.NavigateHref(ctx, hint.Href); err == nil {
					step("followed %s (%s)", hint.Href, hint.Reason)
					return hopMoved
				}
			}
		case "not_found":
			step("hint: not found (%s)", hint.Reason)
			return hopStop
		case "found", "login_required":
			// Re-inspect on the next attempt; detectors decide.
			return hopMoved
		}
	}

	if link, ok := heuristicLink(links); ok {
		if err := sess.ClickLinkText(ctx, link.Text); err == nil {
			step("clicked %q (heuristic)", link.Text)
			return hopMoved
		}
		if err := sess.NavigateHref(ctx, link.Href); err == nil {
			step("followed %s (heuristic)", link.Href)
			return hopMoved
		}
	}

	step("no promising link")
	return hopStuck
}

// askHint asks the model where to go next. Any failure degrades to nil
// and the heuristic takes over.
func (n *Navigator) askHint(ctx context.Context, title string, links []browser.Link) *navHint {
	if n.llm == nil {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Page title: %s\nVisible links:\n", title)
	for _, l := range links {
		fmt.Fprintf(&sb, "- %q -> %s\n", l.Text, l.Href)
	}

	var hint navHint
	if _, err := n.llm.CompleteJSON(ctx, navHintSystemPrompt, sb.String(), &hint); err != nil {
		n.logger.Debug("navigation hint degraded to heuristic", zap.Error(err))
		return nil
	}
	switch hint.Action {
	case "found", "click", "login_required", "not_found":
		return &hint
	}
	return nil
}

var formLinkKeywords = []string{"form", "apply", "register", "application"}

// heuristicLink picks the first link whose text or href suggests a form
func heuristicLink(links []browser.Link) (browser.Link, bool) {
	for _, l := range links {
		haystack := strings.ToLower(l.Text + " " + l.Href)
		for _, kw := range formLinkKeywords {
			if strings.Contains(haystack, kw) {
				return l, true
			}
		}
	}
	return browser.Link{}, false
}
