// Package verify probes the source URLs cited by AI-discovered events.
// A cited page that cannot be fetched (or that robots.txt forbids fetching)
// is treated as unverifiable and the event is dropped in strict mode.
package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const maxProbeBytes = 256 * 1024

// Checker fetches a cited URL and confirms it resolves to a real HTML page.
type Checker struct {
	httpClient *http.Client
	robots     *RobotsChecker
	userAgent  string
}

// NewChecker creates a source checker.
func NewChecker(userAgent string, timeout time.Duration) *Checker {
	return &Checker{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots:    NewRobotsChecker(userAgent, timeout),
		userAgent: userAgent,
	}
}

// Check returns nil when the URL is allowed by robots.txt, resolves with a
// 2xx status, and serves an HTML document with a non-empty title.
func (c *Checker) Check(ctx context.Context, rawURL string) error {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return fmt.Errorf("not an http(s) URL: %s", rawURL)
	}

	if !c.robots.IsAllowed(ctx, rawURL) {
		return fmt.Errorf("robots.txt disallows fetching %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("source returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		// Non-HTML sources (PDF programs etc.) count as verified by
		// reachability alone.
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	if title := pageTitle(body); title == "" {
		return fmt.Errorf("source has no page title")
	}
	return nil
}

// pageTitle extracts the text of the first <title> element.
func pageTitle(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
