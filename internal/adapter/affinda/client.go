// Package affinda drives the external resume parsing service: submit a
// document by reference, then poll its job until ready or the await budget
// runs out.
package affinda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseDelay   = 100 * time.Millisecond
	defaultMaxDelay    = 6400 * time.Millisecond
	defaultAwaitBudget = 15 * time.Second
	defaultHTTPTimeout = 30 * time.Second
)

var (
	// ErrExhausted is returned when the retry budget runs out without a
	// successful response.
	ErrExhausted = errors.New("affinda: retries exhausted")
	// ErrMalformedResponse is returned when a successful submission response
	// carries no job identifier.
	ErrMalformedResponse = errors.New("affinda: malformed response")
)

// Config configures a Client. Zero durations take the production defaults:
// retry delays double from 100ms up to a 6400ms cap, and Await returns
// whatever it last fetched once 15s have elapsed.
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPClient  *http.Client
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	AwaitBudget time.Duration
}

// Client talks to the parsing API. It implements domain.ParserClient.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	baseDelay   time.Duration
	maxDelay    time.Duration
	awaitBudget time.Duration

	// overridable in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient instantiates a parsing API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("affinda: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("affinda: API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	awaitBudget := cfg.AwaitBudget
	if awaitBudget <= 0 {
		awaitBudget = defaultAwaitBudget
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpClient:  httpClient,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		awaitBudget: awaitBudget,
		sleep:       sleepCtx,
		now:         time.Now,
	}, nil
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	FileName   string `json:"fileName"`
	Identifier string `json:"identifier"`
}

// Submit registers contentURL for parsing and returns the issued job handle.
// Non-success responses are retried under the backoff schedule; running out of
// retries yields ErrExhausted.
func (c *Client) Submit(ctx context.Context, contentURL string) (string, error) {
	payload, err := json.Marshal(submitRequest{URL: contentURL})
	if err != nil {
		return "", fmt.Errorf("affinda: encode submit request: %w", err)
	}

	delay := c.baseDelay
	for {
		raw, status, err := c.do(ctx, http.MethodPost, c.baseURL, payload)
		if err == nil && status >= 200 && status < 300 {
			var resp submitResponse
			if jsonErr := json.Unmarshal(raw, &resp); jsonErr != nil || resp.Identifier == "" {
				return "", ErrMalformedResponse
			}
			return resp.Identifier, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if delay > c.maxDelay {
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrExhausted, err)
			}
			return "", fmt.Errorf("%w: last status %d", ErrExhausted, status)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

type readinessProbe struct {
	Meta struct {
		Ready bool `json:"ready"`
	} `json:"meta"`
}

// Await polls the job until its payload reports ready, returning the raw
// payload. Transient failures back off on the same doubling schedule as
// Submit, up to ErrExhausted. Once the await budget has elapsed the current
// payload is returned verbatim even if not ready; the caller must inspect
// readiness before trusting it.
func (c *Client) Await(ctx context.Context, handle string) ([]byte, error) {
	start := c.now()
	delay := c.baseDelay
	for {
		raw, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+handle, nil)
		if err != nil || status < 200 || status >= 300 {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if delay > c.maxDelay {
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrExhausted, err)
				}
				return nil, fmt.Errorf("%w: last status %d", ErrExhausted, status)
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
			continue
		}

		// A payload that doesn't parse counts as not ready; the budget still
		// bounds how long we keep polling it.
		var probe readinessProbe
		_ = json.Unmarshal(raw, &probe)

		elapsed := c.now().Sub(start)
		if probe.Meta.Ready || elapsed > c.awaitBudget {
			return raw, nil
		}

		wait := delay
		if remaining := c.awaitBudget - elapsed; wait > remaining {
			wait = remaining
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("affinda: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("affinda: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("affinda: read body: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
