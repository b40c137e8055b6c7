package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// Name identifies the provider in errors and logs.
	Name string

	// Timeout bounds each HTTP attempt.
	// Default: 30s
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// network errors and 5xx responses.
	MaxRetries int

	// RetryBackoff is the first backoff delay; it doubles per retry.
	// Default: 1s
	RetryBackoff time.Duration

	// MaxIdleConns bounds the idle connection pool.
	// Default: 10
	MaxIdleConns int
}

// Health is a snapshot of request outcomes.
type Health struct {
	Healthy             bool
	ConsecutiveFailures int
	TotalRequests       int64
	FailedRequests      int64
	LastError           error
	LastSuccess         time.Time
}

// unhealthyAfter is the number of consecutive failures that marks a client
// unhealthy.
const unhealthyAfter = 3

// HTTPClient performs JSON requests with retry, exponential backoff and
// outcome tracking.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
	logger *slog.Logger

	mu     sync.RWMutex
	health Health
}

// NewHTTPClient creates a client with a pooled transport.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		config: cfg,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "completion.http", "provider", cfg.Name),
		health: Health{Healthy: true},
	}
}

// Health returns the current outcome snapshot.
func (c *HTTPClient) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

func (c *HTTPClient) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.health.TotalRequests++
	if err == nil {
		c.health.Healthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		c.health.LastSuccess = time.Now()
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err
	if c.health.ConsecutiveFailures >= unhealthyAfter && c.health.Healthy {
		c.health.Healthy = false
		c.logger.Warn("provider marked unhealthy",
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// Do sends the request, retrying network errors and 5xx responses. Auth,
// rate-limit and other 4xx responses are returned immediately.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryBackoff << (attempt - 1)
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, &TimeoutError{Provider: c.config.Name, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				terr := &TimeoutError{Provider: c.config.Name, Cause: ctx.Err()}
				c.record(terr)
				return nil, terr
			}
			lastErr = &ProviderError{Provider: c.config.Name, Message: "request failed", Cause: err}
			c.record(lastErr)
			c.logger.Warn("request failed, will retry",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.record(nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			aerr := &AuthError{Provider: c.config.Name, Message: string(errorBody)}
			c.record(aerr)
			return nil, aerr

		case resp.StatusCode == http.StatusTooManyRequests:
			rerr := &RateLimitError{
				Provider:   c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}
			c.record(rerr)
			return nil, rerr

		case resp.StatusCode < 500:
			perr := &ProviderError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			c.record(perr)
			return nil, perr

		default:
			lastErr = &ProviderError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			c.record(lastErr)
			c.logger.Warn("request returned error status, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoJSON marshals reqBody, sends it with Do and decodes the response into
// respBody. Decoding failures are ParseErrors.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, payload, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: c.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return &ParseError{
				Provider:    c.config.Name,
				RawResponse: string(raw),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return nil
}

// CloseIdleConnections releases pooled connections.
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// IsRetryable reports whether err is worth retrying later.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var te *TimeoutError
	var pe *ProviderError
	switch {
	case errors.As(err, &rl), errors.As(err, &te):
		return true
	case errors.As(err, &pe):
		return pe.StatusCode == 0 || pe.StatusCode >= 500
	default:
		return false
	}
}

// parseRetryAfter parses delay-seconds or HTTP-date Retry-After values.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
