// Package fetch - browser.go provides headless rendering for prospect sites
// that ship near-empty HTML and render everything client side.
package fetch

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinRenderedLength is the extracted-text length below which a page is
// assumed to be a JavaScript-rendered SPA worth re-fetching in a browser.
const MinRenderedLength = 200

// ShouldRender reports whether the plain HTTP fetch produced too little text
// and a browser render should be attempted.
func ShouldRender(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinRenderedLength
}

// Render loads a page in a headless browser and returns the rendered HTML.
// Requires Chrome/Chromium on the system; callers treat failure like any
// other fetch failure and record the URL as blocked.
func Render(ctx context.Context, url string, timeout time.Duration, verbose bool) (string, error) {
	if verbose {
		log.Printf("[BROWSER] rendering %s", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	if verbose {
		log.Printf("[BROWSER] rendered %d bytes", len(html))
	}
	return html, nil
}
