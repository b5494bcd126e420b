package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is where the daemon listens unless configured otherwise.
const DefaultBaseURL = "http://127.0.0.1:8080/api"

// Client provides HTTP client functionality to communicate with the ngxvisor daemon
type Client struct {
	baseURL string
	client  *http.Client
	stream  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 30 * time.Second,
	}
}

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return "API error: " + e.Message
}

// IsNotFound reports whether err is a 404 from the daemon, which it returns
// when the supervised binary is missing.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// New creates a new ngxvisor API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
		// streams stay open until the caller cancels
		stream: &http.Client{},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.Debug("Daemon reachability check", "status", resp.StatusCode)
	return true
}

// Start starts the supervised server; a no-op when it already runs.
func (c *Client) Start(ctx context.Context) error { return c.post(ctx, "/start", nil) }

// Stop stops the supervised server.
func (c *Client) Stop(ctx context.Context) error { return c.post(ctx, "/stop", nil) }

// Restart reloads the supervised server's configuration.
func (c *Client) Restart(ctx context.Context) error { return c.post(ctx, "/restart", nil) }

// TestConfig checks the default configuration, or the file at path when set.
func (c *Client) TestConfig(ctx context.Context, path string) error {
	q := url.Values{}
	if path != "" {
		q.Set("path", path)
	}
	return c.post(ctx, "/test", q)
}

// Version returns the server's version token.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out versionResponse
	if err := c.get(ctx, "/version", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// Status returns "running" or "stopped".
func (c *Client) Status(ctx context.Context) (string, error) {
	var out statusResponse
	if err := c.get(ctx, "/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Info fetches a status snapshot. cached asks for the monitor's last one.
func (c *Client) Info(ctx context.Context, cached bool) (ServiceInfo, error) {
	q := url.Values{}
	if cached {
		q.Set("cached", "1")
	}
	var out ServiceInfo
	err := c.get(ctx, "/info", q, &out)
	return out, err
}

// Logs returns filtered log content.
func (c *Client) Logs(ctx context.Context, lq LogsQuery) (string, error) {
	q := url.Values{}
	q.Set("kind", lq.Kind)
	if lq.Lines > 0 {
		q.Set("lines", strconv.Itoa(lq.Lines))
	}
	if lq.Search != "" {
		q.Set("search", lq.Search)
	}
	if lq.Level != "" {
		q.Set("level", lq.Level)
	}
	var out logsResponse
	if err := c.get(ctx, "/logs", q, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// ClearLog truncates the named log.
func (c *Client) ClearLog(ctx context.Context, kind string) error {
	return c.post(ctx, "/logs/clear", url.Values{"kind": {kind}})
}

// LogExists reports whether the named log file exists.
func (c *Client) LogExists(ctx context.Context, kind string) (bool, error) {
	var out existsResponse
	if err := c.get(ctx, "/logs/exists", url.Values{"kind": {kind}}, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// OpenLogs asks the daemon's desktop session to show the log folder.
func (c *Client) OpenLogs(ctx context.Context) error { return c.post(ctx, "/logs/open", nil) }

// FollowLog calls fn for every line appended to the named log until ctx is
// cancelled or the daemon closes the stream.
func (c *Client) FollowLog(ctx context.Context, kind string, fn func(line string)) error {
	return c.streamEvents(ctx, "/logs/follow", url.Values{"kind": {kind}}, func(_, data string) error {
		fn(data)
		return nil
	})
}

// Events calls fn for every status-change event until ctx is cancelled.
func (c *Client) Events(ctx context.Context, fn func(Event)) error {
	return c.streamEvents(ctx, "/events", nil, func(_, data string) error {
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(ev)
		return nil
	})
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) post(ctx context.Context, path string, q url.Values) error {
	return c.do(ctx, http.MethodPost, c.endpoint(path, q), nil)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, c.endpoint(path, q), out)
}

// do performs HTTP request with common error handling
func (c *Client) do(ctx context.Context, method, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "error", err, "url", u)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Debug("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}
	c.logger.Debug("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error}
}

func (c *Client) streamEvents(ctx context.Context, path string, q url.Values, fn func(event, data string) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	err = readSSE(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readSSE parses a text/event-stream body into (event, data) pairs.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var event string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				if err := fn(event, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return sc.Err()
}
