// Package fetch provides bounded HTTP fetching and HTML-to-text extraction
// for prospect sites. It centralizes the outbound HTTP behavior used by the
// crawler: one persistent client, bounded timeouts, a descriptive user
// agent, and status/content-type capture for the crawl report.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent identifies the KB factory crawler to prospect sites.
	DefaultUserAgent = "KBFactory/1.0 (+https://github.com/jonathan/kb-factory)"
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 4 << 20
)

// Result holds the raw content and transport metadata from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// IsHTML reports whether the response carried an HTML content type.
func (r *Result) IsHTML() bool {
	return strings.Contains(r.ContentType, "text/html") ||
		strings.Contains(r.ContentType, "application/xhtml")
}

// Error represents a failure fetching a URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Client fetches pages over a single persistent HTTP session.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient returns a Client with the given per-request timeout. A zero
// timeout uses the default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  DefaultUserAgent,
	}
}

// Get retrieves a URL. A non-200 status returns the Result alongside an
// Error so callers can record the status and continue.
func (c *Client) Get(ctx context.Context, urlStr string) (*Result, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return result, nil
}

// ExtractMainText parses HTML and returns the main body text with noise
// elements removed. It tries the prospect-page selectors in order and falls
// back to the body element.
func ExtractMainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, aside, .ad, .ads, .cookie-banner, .popup, .sidebar").Remove()

	var main *goquery.Selection
	for _, selector := range prospectPageSelectors() {
		if sel := doc.Find(selector); sel.Length() > 0 {
			main = sel.First()
			break
		}
	}
	if main == nil {
		main = doc.Find("body")
	}

	return normalizeLines(main.Text()), nil
}

// ExtractTitle returns the page title, or an empty string.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// prospectPageSelectors lists the content containers tried, in order, on
// prospect marketing sites.
func prospectPageSelectors() []string {
	return []string{
		"main",
		"article",
		".content",
		"#content",
		".main-content",
		"#main-content",
	}
}

// normalizeLines trims each line and drops empty ones, preserving line
// structure for downstream chunking.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
