package navigator

import "strings"

// DetectorConfig holds the keyword sets used to classify page states.
// All sets are matched case-insensitively against the page title and
// the leading window of the page content.
type DetectorConfig struct {
	DeadEndKeywords []string
	BlockedKeywords []string
	LoginKeywords   []string
	MinLoginHits    int
	ContentWindow   int
}

// DefaultDetectorConfig returns the keyword sets tuned for government
// portals
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		DeadEndKeywords: []string{"404", "not found", "page not found", "page does not exist"},
		BlockedKeywords: []string{"access denied", "permission denied", "captcha"},
		LoginKeywords:   []string{"login", "sign in", "log in", "authenticate", "enter password", "username"},
		MinLoginHits:    2,
		ContentWindow:   5000,
	}
}

// Detector classifies page states from title, content and input counts
type Detector struct {
	cfg DetectorConfig
}

// NewDetector creates a detector over the given keyword sets
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.MinLoginHits <= 0 {
		cfg.MinLoginHits = 2
	}
	if cfg.ContentWindow <= 0 {
		cfg.ContentWindow = 5000
	}
	return &Detector{cfg: cfg}
}

// Window lowercases content and truncates it to the configured
// inspection window
func (d *Detector) Window(content string) string {
	lowered := strings.ToLower(content)
	if len(lowered) > d.cfg.ContentWindow {
		return lowered[:d.cfg.ContentWindow]
	}
	return lowered
}

// DeadEnd reports whether the page looks like a missing or broken
// destination, returning the keyword that matched
func (d *Detector) DeadEnd(title, content string) (bool, string) {
	haystack := strings.ToLower(title) + " " + d.Window(content)
	for _, kw := range d.cfg.DeadEndKeywords {
		if strings.Contains(haystack, kw) {
			return true, kw
		}
	}
	return false, ""
}

// Blocked reports whether the page refused access or demanded a
// captcha, returning the keyword that matched
func (d *Detector) Blocked(title, content string) (bool, string) {
	haystack := strings.ToLower(title) + " " + d.Window(content)
	for _, kw := range d.cfg.BlockedKeywords {
		if strings.Contains(haystack, kw) {
			return true, kw
		}
	}
	return false, ""
}

// LoginWall reports whether the page is gating on authentication. It
// requires both enough login vocabulary and an actual password input,
// so pages that merely link to a login page do not trip it.
func (d *Detector) LoginWall(content string, passwordInputs int) bool {
	if passwordInputs < 1 {
		return false
	}
	window := d.Window(content)
	hits := 0
	for _, kw := range d.cfg.LoginKeywords {
		if strings.Contains(window, kw) {
			hits++
		}
	}
	return hits >= d.cfg.MinLoginHits
}
