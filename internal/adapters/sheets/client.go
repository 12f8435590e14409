package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tavola/internal/adapters/observability"
	"tavola/internal/domain"
)

// maxPayload caps what we read from the published sheet.
const maxPayload = 4 << 20

// Client downloads the published CSV export of the menu spreadsheet.
// It never retries and never caches: every call hits the sheet.
type Client struct {
	url string
	hc  *http.Client
	rl  *rate.Limiter
}

func New(url string, rps int) (*Client, error) {
	if url == "" {
		return nil, domain.ErrNotConfigured
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		url: url,
		hc:  &http.Client{Timeout: 20 * time.Second},
		rl:  rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) URL() string { return c.url }

// FetchCSV returns the raw payload. Non-2xx and transport failures come back
// as *domain.FetchError, a blank body as domain.ErrEmptyPayload.
func (c *Client) FetchCSV(ctx context.Context) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", domain.NewFetchError(c.url, 0, "", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "tavola/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("sheets", "csv", 0, time.Since(start))
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.NewFetchError(c.url, 0, "", err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("sheets", "csv", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload+1))
		if err != nil {
			return "", domain.NewFetchError(c.url, resp.StatusCode, "", err)
		}
		if len(b) > maxPayload {
			return "", domain.NewFetchError(c.url, resp.StatusCode, "",
				fmt.Errorf("payload exceeds %d bytes", maxPayload))
		}
		body := string(b)
		if strings.TrimSpace(body) == "" {
			return "", domain.ErrEmptyPayload
		}
		return body, nil

	default:
		// small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.NewFetchError(c.url, resp.StatusCode, string(b), errors.New(resp.Status))
	}
}
