// Package source contains the provider connectors. Each connector fetches
// one external provider's listings and maps them into canonical events; a
// provider outage never aborts the larger run.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/util"
)

// NewHTTPClient builds the shared HTTP client used by all connectors.
func NewHTTPClient(cfg model.HTTPConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}

// getJSON performs one GET and decodes the JSON body into v, reading at most
// maxBytes. Non-2xx statuses are returned as errors carrying the status code.
func getJSON(ctx context.Context, client *http.Client, url, userAgent string, headers map[string]string, maxBytes int64, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// image is one entry of a provider's multi-resolution image list.
type image struct {
	URL   string
	Width int
}

// bestImage prefers a mid-large resolution band. Oversized assets are often
// low-quality crops, so the widest image inside 500..1200px wins; only when
// the band is empty does the overall widest win.
func bestImage(images []image) string {
	var bandBest, overallBest image
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		if img.Width > overallBest.Width {
			overallBest = img
		}
		if img.Width >= 500 && img.Width <= 1200 && img.Width > bandBest.Width {
			bandBest = img
		}
	}
	if bandBest.URL != "" {
		return bandBest.URL
	}
	return overallBest.URL
}

// formatPrice normalizes a provider price range into one display string.
// A verifiably zero minimum becomes the "Kostenlos" sentinel.
func formatPrice(min, max float64, currency string) string {
	suffix := currency
	if currency == "EUR" || currency == "" {
		suffix = "€"
	}
	switch {
	case min == 0:
		return "Kostenlos"
	case max == 0 || min == max:
		return formatAmount(min) + suffix
	default:
		return formatAmount(min) + "–" + formatAmount(max) + suffix
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
