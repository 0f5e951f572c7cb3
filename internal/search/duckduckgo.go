package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Result is a single search hit
type Result struct {
	URL   string
	Title string
}

// DuckDuckGoClient queries the DuckDuckGo HTML endpoint and scrapes result
// links. No API key required.
type DuckDuckGoClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// Config holds search client settings
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// NewDuckDuckGoClient creates a DuckDuckGo search client
func NewDuckDuckGoClient(cfg Config) *DuckDuckGoClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://duckduckgo.com/html/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &DuckDuckGoClient{
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Search returns up to maxResults (url, title) pairs for the query
func (c *DuckDuckGoClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	endpoint := c.endpoint + "?" + url.Values{"q": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing results: %w", err)
	}

	var results []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		href = resolveRedirect(href)
		if !strings.HasPrefix(href, "http") {
			return true
		}
		results = append(results, Result{
			URL:   href,
			Title: strings.TrimSpace(sel.Text()),
		})
		return len(results) < maxResults
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links
func resolveRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
