// Package gemdb is a client for the upstream gem database API, which owns
// gem master data, marketplace listings and user holdings.
package gemdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fmuoria/gems-hub/internal/apperr"
	"github.com/fmuoria/gems-hub/internal/logging"
)

const defaultUserAgent = "gems-hub/1.0"

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 4096

// APIError is a non-2xx response from the upstream API
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemdb: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the upstream answered 404
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Retryable reports whether the request may succeed if sent again
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ObserveFunc receives the endpoint name and status of every upstream call.
// Status 0 means the request never got a response.
type ObserveFunc func(endpoint string, status int)

// Client talks to the gem database API
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	retryMax   int
	retryWait  time.Duration
	log        *logging.Logger
	observe    ObserveFunc
}

// NewClient creates a new gem database client
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, apperr.Validation("gemdb base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperr.Validation(fmt.Sprintf("gemdb base URL must be http or https: %q", baseURL))
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryMax:   2,
		retryWait:  250 * time.Millisecond,
		log:        logging.Nop(),
		observe:    func(string, int) {},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// do sends a request and decodes a JSON response into result.
// Idempotent requests are retried with linear backoff on transport errors,
// 429 and 5xx. A POST may already have been applied upstream when it fails,
// so it is only retried on 429.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, result interface{}) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := c.retryWait * time.Duration(attempt)
			c.log.Debug("retrying upstream request", "endpoint", endpoint, "attempt", attempt, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return apperr.Wrap(ctx.Err(), apperr.KindUnavailable, "gem database request cancelled")
			}
		}

		status, err := c.send(ctx, method, fullURL, payload, result)
		c.observe(endpoint, status)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(method, err) {
			break
		}
	}

	return classify(lastErr)
}

func shouldRetry(method string, err error) bool {
	var apiErr *APIError
	isAPI := errors.As(err, &apiErr)
	if method == http.MethodPost {
		return isAPI && apiErr.StatusCode == http.StatusTooManyRequests
	}
	return !isAPI || apiErr.Retryable()
}

func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte, result interface{}) (int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.Status),
			Body:       string(raw),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: "invalid JSON response: " + err.Error()}
	}
	return resp.StatusCode, nil
}

// errorMessage pulls "detail", "message" or "error" out of a JSON error body
func errorMessage(raw []byte, fallback string) string {
	var body map[string]interface{}
	if json.Unmarshal(raw, &body) == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}

// classify turns a transport or API error into an application error
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsNotFound():
			return apperr.Wrap(err, apperr.KindNotFound, "not found in gem database")
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return apperr.Wrap(err, apperr.KindUpstream, "gem database rejected the API key")
		case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
			return apperr.Wrap(err, apperr.KindValidation, apiErr.Message)
		default:
			return apperr.Wrap(err, apperr.KindUpstream, "gem database request failed")
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(err, apperr.KindUnavailable, "gem database timed out")
	}
	return apperr.Wrap(err, apperr.KindUnavailable, "gem database unreachable")
}
