package probe

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// DefaultUserAgent is sent with plain HTTP portal requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ExamAgentProbe/1.0)"

// maxPageBytes caps how much of a portal response is read.
const maxPageBytes = 5 << 20

// FetchError is a failed plain HTTP portal request.
type FetchError struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// HTTPRenderer fetches pages with a plain GET. It sees only server-rendered
// markup, so forms built by scripts will look empty.
func HTTPRenderer(client *http.Client) Renderer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, urlStr string) (string, error) {
		parsed, err := url.Parse(urlStr)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", &FetchError{URL: urlStr, Message: "invalid URL", Cause: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return "", &FetchError{URL: urlStr, Message: "failed to create request", Cause: err}
		}
		req.Header.Set("User-Agent", DefaultUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return "", &FetchError{URL: urlStr, Message: "HTTP request failed", Cause: err}
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return "", &FetchError{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode), StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return "", &FetchError{URL: urlStr, Message: "failed to read response body", Cause: err}
		}
		return string(body), nil
	}
}

// FallbackRenderer tries primary first and uses fallback when primary fails
// or returns a page without any form controls.
func FallbackRenderer(primary, fallback Renderer) Renderer {
	return func(ctx context.Context, urlStr string) (string, error) {
		html, err := primary(ctx, urlStr)
		if err == nil {
			if fields, parseErr := FormFields(html); parseErr == nil && len(fields) > 0 {
				return html, nil
			}
			log.Printf("[probe] no form controls in static HTML for %s, rendering in browser", urlStr)
		} else {
			log.Printf("[probe] static fetch failed for %s, rendering in browser: %v", urlStr, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fallback(ctx, urlStr)
	}
}
