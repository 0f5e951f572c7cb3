package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Config controls browser launch and context fingerprint
type Config struct {
	Headless    bool
	UserAgent   string
	Locale      string
	Timezone    string
	ViewportW   int
	ViewportH   int
	NavTimeout  time.Duration
	SettleDelay time.Duration
}

// DefaultConfig returns a desktop Chrome profile that blends in with
// ordinary traffic
func DefaultConfig() Config {
	return Config{
		Headless:    true,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Locale:      "en-US",
		Timezone:    "Asia/Kolkata",
		ViewportW:   1366,
		ViewportH:   768,
		NavTimeout:  30 * time.Second,
		SettleDelay: 2 * time.Second,
	}
}

// Link is a visible anchor on the current page
type Link struct {
	Text string
	Href string
}

// Session is one browser tab with navigation and inspection primitives
type Session interface {
	Open(ctx context.Context, rawURL string) error
	CurrentURL() string
	Title() (string, error)
	Content() (string, error)
	CountFormFields() (int, error)
	CountPasswordInputs() (int, error)
	VisibleLinks(max int) ([]Link, error)
	ClickLinkText(ctx context.Context, text string) error
	NavigateHref(ctx context.Context, href string) error
	Screenshot() ([]byte, error)
	Close() error
}

// SessionFactory opens sessions, optionally headed so a person can
// interact with the page
type SessionFactory interface {
	NewSession(ctx context.Context, headless bool) (Session, error)
	Close() error
}

// stealthInit masks the most common automation tells before any page
// script runs
const stealthInit = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
window.chrome = window.chrome || { runtime: {} };
`

// Factory launches chromium lazily and hands out configured sessions.
// Headless and headed modes use separate browser processes because the
// mode is fixed at launch.
type Factory struct {
	cfg Config

	mu       sync.Mutex
	pw       *playwright.Playwright
	browsers map[bool]playwright.Browser
}

// NewFactory creates a session factory. No browser starts until the
// first session is requested.
func NewFactory(cfg Config) *Factory {
	return &Factory{
		cfg:      cfg,
		browsers: make(map[bool]playwright.Browser),
	}
}

// browser returns a launched browser for the given mode, starting the
// driver on first use
func (f *Factory) browser(headless bool) (playwright.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if b, ok := f.browsers[headless]; ok {
		return b, nil
	}

	if f.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("starting playwright: %w", err)
		}
		f.pw = pw
	}

	b, err := f.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-infobars",
			"--no-first-run",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	f.browsers[headless] = b
	return b, nil
}

// NewSession opens a fresh browser context and page with the stealth
// profile applied
func (f *Factory) NewSession(ctx context.Context, headless bool) (Session, error) {
	b, err := f.browser(headless)
	if err != nil {
		return nil, err
	}

	browserCtx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(f.cfg.UserAgent),
		Locale:     playwright.String(f.cfg.Locale),
		TimezoneId: playwright.String(f.cfg.Timezone),
		Viewport: &playwright.Size{
			Width:  f.cfg.ViewportW,
			Height: f.cfg.ViewportH,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{
		Content: playwright.String(stealthInit),
	}); err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("installing init script: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &pageSession{
		ctx:  browserCtx,
		page: page,
		cfg:  f.cfg,
	}, nil
}

// Close stops all launched browsers and the driver
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range f.browsers {
		b.Close()
	}
	f.browsers = make(map[bool]playwright.Browser)

	if f.pw != nil {
		err := f.pw.Stop()
		f.pw = nil
		return err
	}
	return nil
}

// pageSession implements Session on a playwright page
type pageSession struct {
	ctx  playwright.BrowserContext
	page playwright.Page
	cfg  Config
}

func (s *pageSession) Open(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.page.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", rawURL, err)
	}

	// Let client-side rendering settle before inspection
	s.page.WaitForTimeout(float64(s.cfg.SettleDelay.Milliseconds()))
	return nil
}

func (s *pageSession) CurrentURL() string {
	return s.page.URL()
}

func (s *pageSession) Title() (string, error) {
	return s.page.Title()
}

func (s *pageSession) Content() (string, error) {
	return s.page.Content()
}

// CountFormFields counts fillable inputs: visible text-like inputs,
// textareas and selects
func (s *pageSession) CountFormFields() (int, error) {
	return s.page.Locator("input:not([type='hidden']):not([type='submit']):not([type='button']), textarea, select").Count()
}

func (s *pageSession) CountPasswordInputs() (int, error) {
	return s.page.Locator("input[type='password']").Count()
}

// VisibleLinks returns up to max anchors that have both text and an
// href, skipping fragments and javascript pseudo-links
func (s *pageSession) VisibleLinks(max int) ([]Link, error) {
	locators := s.page.Locator("a[href]")
	count, err := locators.Count()
	if err != nil {
		return nil, fmt.Errorf("counting links: %w", err)
	}

	var links []Link
	for i := 0; i < count && len(links) < max; i++ {
		anchor := locators.Nth(i)

		visible, err := anchor.IsVisible()
		if err != nil || !visible {
			continue
		}

		text, err := anchor.TextContent()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		href, err := anchor.GetAttribute("href")
		if err != nil || href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(strings.ToLower(href), "javascript:") {
			continue
		}

		links = append(links, Link{Text: text, Href: href})
	}
	return links, nil
}

// ClickLinkText clicks the first visible anchor whose text contains the
// given string, then waits for the page to settle
func (s *pageSession) ClickLinkText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	anchor := s.page.Locator(fmt.Sprintf(`a:has-text(%q)`, text)).First()
	if err := anchor.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("clicking link %q: %w", text, err)
	}

	s.page.WaitForTimeout(float64(s.cfg.SettleDelay.Milliseconds()))
	return nil
}

// NavigateHref resolves href against the current URL and navigates
func (s *pageSession) NavigateHref(ctx context.Context, href string) error {
	base, err := url.Parse(s.page.URL())
	if err != nil {
		return fmt.Errorf("parsing current URL: %w", err)
	}
	target, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("parsing href %q: %w", href, err)
	}
	return s.Open(ctx, base.ResolveReference(target).String())
}

func (s *pageSession) Screenshot() ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(70),
	})
}

func (s *pageSession) Close() error {
	s.page.Close()
	return s.ctx.Close()
}
