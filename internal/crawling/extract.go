package crawling

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns all same-host anchor targets in discovery order,
// resolved against baseURL, with fragments dropped and trailing slashes
// trimmed for deduplication.
func ExtractLinks(htmlContent string, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &LinkExtractionError{Message: "invalid base URL: " + baseURL, Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{Message: "failed to parse HTML", Cause: err}
	}

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}

		absolute := base.ResolveReference(linkURL)
		if absolute.Host != base.Host {
			return
		}

		absolute.Fragment = ""
		normalized := strings.TrimSuffix(absolute.String(), "/")
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		links = append(links, normalized)
	})

	return links, nil
}
