// Package bridge implements the HTTP client for the bridging network's
// public API: status polls, transfer details, and recovery submissions.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// requestTimeout bounds a single API request end to end.
	requestTimeout = 10 * time.Second
	// retryMaxElapsed is the maximum time spent retrying one request on
	// transient network errors.
	retryMaxElapsed = 8 * time.Second
)

// Client talks to a bridge network API endpoint.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a bridge API client with exponential backoff on transient
// network errors.
func New(endpoint string, opts ...ClientOption) (*Client, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	baseURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse bridge endpoint: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &retryRoundTripper{
				base: http.DefaultTransport,
				newBackoff: func() backoff.BackOff {
					return backoff.NewExponentialBackOff(
						backoff.WithInitialInterval(200*time.Millisecond),
						backoff.WithMaxInterval(2*time.Second),
						backoff.WithMaxElapsedTime(retryMaxElapsed),
					)
				},
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client, replacing the retrying default.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// retryRoundTripper retries requests on transient network errors. Anything
// that produced an HTTP response, however unhappy, is not retried here.
type retryRoundTripper struct {
	base       http.RoundTripper
	newBackoff func() backoff.BackOff
}

func (rt *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := func() (*http.Response, error) {
		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) {
				slog.Debug("retrying bridge request after network error", "err", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return resp, nil
	}
	boff := backoff.WithContext(rt.newBackoff(), req.Context())
	return backoff.RetryWithData(attempt, boff)
}
