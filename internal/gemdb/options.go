package gemdb

import (
	"net/http"
	"time"

	"github.com/fmuoria/gems-hub/internal/logging"
)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetryMax sets how many times a failed request is retried
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}

// WithRetryWait sets the base backoff between retries
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryWait = d
		}
	}
}

func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithObserver registers a callback for every upstream response
func WithObserver(fn ObserveFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.observe = fn
		}
	}
}
