// Package probe checks exam configurations against the live registration
// portals: it renders each portal page and reports field mappings whose
// destination form control does not exist. It never submits anything.
package probe

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultTimeout bounds rendering of a single portal page.
const DefaultTimeout = 45 * time.Second

// Renderer returns the rendered HTML of a page.
type Renderer func(ctx context.Context, url string) (string, error)

// BrowserRenderer renders pages in headless Chrome with the given per-page timeout.
// Requires Chrome/Chromium to be installed on the system.
func BrowserRenderer(timeout time.Duration, verbose bool) Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func(ctx context.Context, url string) (string, error) {
		return renderWithBrowser(ctx, url, timeout, verbose)
	}
}

func renderWithBrowser(ctx context.Context, url string, timeout time.Duration, verbose bool) (string, error) {
	if verbose {
		log.Printf("[probe] Starting headless browser for: %s", url)
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
		// Registration forms are often injected by scripts after load
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	if verbose {
		log.Printf("[probe] Rendered %s: %d bytes", url, len(html))
	}
	return html, nil
}
