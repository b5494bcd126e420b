package stubstatus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultURL     = "http://127.0.0.1/nginx_status"
	DefaultTimeout = 3 * time.Second

	maxBodyBytes = 64 << 10
)

// Fetcher retrieves and parses the status page.
type Fetcher struct {
	URL    string
	Client *http.Client
}

// NewFetcher returns a Fetcher for url with its own bounded HTTP client.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Fetch performs one GET and parses the body. Connection failures and non-2xx
// responses wrap ErrPageAbsent.
func (f *Fetcher) Fetch(ctx context.Context) (Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrPageAbsent, err)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrPageAbsent, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Sample{}, fmt.Errorf("%w: status %d", ErrPageAbsent, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %v", ErrPageAbsent, err)
	}
	return Parse(string(body))
}
