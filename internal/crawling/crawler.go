package crawling

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/jonathan/kb-factory/internal/fetch"
	"github.com/jonathan/kb-factory/internal/sanitize"
	"github.com/jonathan/kb-factory/internal/types"
)

const (
	// DefaultMaxDepth bounds how far the BFS follows links from the seed.
	DefaultMaxDepth = 2
	// DefaultMaxFiles caps the number of evidence records per crawl.
	DefaultMaxFiles = 60
	// MinPageText is the minimum extracted text length for a page to count
	// as evidence.
	MinPageText = 200
)

// commonPaths is the fixed set of paths seeded at depth 1 alongside the
// base URL. Most prospect sites keep their substance on these.
var commonPaths = []string{
	"pricing", "services", "solutions", "faq", "docs",
	"about", "contact", "privacy", "terms",
}

// assetSuffixes are rejected by suffix before fetching.
var assetSuffixes = []string{".pdf", ".jpg", ".jpeg", ".png", ".svg", ".gif", ".webp", ".zip", ".mp4"}

// excludedFragments mark URLs that are never worth crawling.
var excludedFragments = []string{"login", "signup", "javascript:", "mailto:"}

// Fetcher retrieves a single URL. The crawler is polymorphic over it so
// tests can substitute transports.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// clientFetcher adapts fetch.Client to the Fetcher interface.
type clientFetcher struct {
	client *fetch.Client
}

func (f *clientFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	return f.client.Get(ctx, url)
}

// Options configures a crawl.
type Options struct {
	MaxDepth   int
	MaxFiles   int
	Timeout    time.Duration
	UseBrowser bool
	Verbose    bool
	// Fetcher overrides the default HTTP fetcher when non-nil.
	Fetcher Fetcher
}

// DefaultOptions returns the standard crawl budget.
func DefaultOptions() *Options {
	return &Options{
		MaxDepth: DefaultMaxDepth,
		MaxFiles: DefaultMaxFiles,
		Timeout:  fetch.DefaultTimeout,
	}
}

type queueItem struct {
	url   string
	depth int
}

// Crawl performs a bounded BFS over the registrable domain of baseURL and
// returns the evidence records plus the crawl report. Page-level failures
// are recorded as blocked URLs; only an unusable base URL is an error.
func Crawl(ctx context.Context, baseURL string, opts *Options) ([]types.EvidenceRecord, *types.CrawlReport, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}

	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, nil, &CrawlError{Message: "invalid base URL: " + baseURL, Cause: err}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, nil, &CrawlError{Message: "unsupported scheme: " + base.Scheme}
	}
	site := registrableSite(base)

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &clientFetcher{client: fetch.NewClient(opts.Timeout)}
	}

	report := &types.CrawlReport{
		URLs:        []string{},
		BlockedURLs: []string{},
		StatusCodes: map[string]int{},
		Assets:      []string{},
	}
	started := time.Now()

	queue := make([]queueItem, 0, len(commonPaths)+1)
	queue = append(queue, queueItem{url: baseURL, depth: 0})
	for _, path := range commonPaths {
		queue = append(queue, queueItem{url: baseURL + "/" + path, depth: 1})
	}

	visited := map[string]bool{}
	records := make([]types.EvidenceRecord, 0, opts.MaxFiles)

	for len(queue) > 0 && len(records) < opts.MaxFiles {
		item := queue[0]
		queue = queue[1:]

		if visited[item.url] || item.depth > opts.MaxDepth {
			continue
		}
		visited[item.url] = true

		if isAsset(item.url) {
			report.Assets = append(report.Assets, item.url)
			continue
		}

		result, err := fetcher.Fetch(ctx, item.url)
		if result != nil {
			report.StatusCodes[item.url] = result.StatusCode
		}
		if err != nil {
			if opts.Verbose {
				log.Printf("[CRAWL] blocked %s: %v", item.url, err)
			}
			report.BlockedURLs = append(report.BlockedURLs, item.url)
			continue
		}

		if !result.IsHTML() {
			report.Assets = append(report.Assets, item.url)
			continue
		}

		html := result.HTML
		text, err := fetch.ExtractMainText(html)
		if err != nil {
			report.BlockedURLs = append(report.BlockedURLs, item.url)
			continue
		}

		if opts.UseBrowser && fetch.ShouldRender(text) {
			if rendered, rerr := fetch.Render(ctx, item.url, opts.Timeout, opts.Verbose); rerr == nil {
				if retext, xerr := fetch.ExtractMainText(rendered); xerr == nil {
					html, text = rendered, retext
				}
			}
		}

		if len(text) < MinPageText {
			continue
		}

		title := fetch.ExtractTitle(html)
		if title == "" {
			title = item.url
		}

		records = append(records, types.EvidenceRecord{
			URL:           item.url,
			Depth:         item.depth,
			StatusCode:    result.StatusCode,
			Title:         title,
			ExtractedText: sanitize.Clean(text),
		})
		report.URLs = append(report.URLs, item.url)
		if item.depth > report.CrawlDepth {
			report.CrawlDepth = item.depth
		}

		if item.depth < opts.MaxDepth {
			links, lerr := ExtractLinks(html, item.url)
			if lerr != nil {
				continue
			}
			for _, link := range links {
				if visited[link] || isExcluded(link) || !sameSite(link, site) {
					continue
				}
				if isAsset(link) {
					report.Assets = append(report.Assets, link)
					continue
				}
				queue = append(queue, queueItem{url: link, depth: item.depth + 1})
			}
		}
	}

	report.PagesFetched = len(records)
	report.ElapsedMS = time.Since(started).Milliseconds()

	return records, report, nil
}

// registrableSite returns the eTLD+1 of a URL's host, falling back to the
// bare hostname for IPs, localhost, and other unlisted hosts.
func registrableSite(u *url.URL) string {
	host := u.Hostname()
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return site
	}
	return host
}

// sameSite reports whether a URL belongs to the crawl's registrable domain
// over http or https.
func sameSite(rawURL, site string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return registrableSite(u) == site
}

func isAsset(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func isExcluded(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, fragment := range excludedFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
