// Package fetch implements the harvester's network fetch collaborator on top
// of net/http.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"hls-harvester/internal/harvester"
)

const defaultTimeout = 30 * time.Second

// Client downloads segment payloads over HTTP. It implements
// harvester.Fetcher.
type Client struct {
	http *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithProxy routes all requests through the given proxy. A nil proxy leaves
// the client direct.
func WithProxy(proxy *url.URL) Option {
	return func(c *Client) {
		if proxy == nil {
			return
		}
		if t, ok := c.http.Transport.(*http.Transport); ok {
			t.Proxy = http.ProxyURL(proxy)
		}
	}
}

// New returns a Client with its own transport so proxy configuration does not
// leak into the process-wide default.
func New(opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &Client{http: &http.Client{Timeout: defaultTimeout, Transport: transport}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads uri into destPath. The destination directory must already
// exist. Fetch never retries; retry policy belongs to the caller.
func (c *Client) Fetch(ctx context.Context, uri, destPath string) error {
	if uri == "" {
		return errors.New("fetch: empty uri")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", uri, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the transport can reuse the connection.
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("get %s: HTTP %d", uri, resp.StatusCode)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return dst.Close()
}

var _ harvester.Fetcher = (*Client)(nil)
