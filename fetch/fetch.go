// Package fetch performs direct HTTP downloads with a Chrome TLS
// fingerprint. Image hosts frequently refuse requests that do not look
// like a real browser, so the fetcher mimics one down to the ClientHello.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	tls2 "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Fetcher retrieves raw bytes from a URL. Satisfied by Client and by test
// fakes.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) ([]byte, error)
}

// Client is a Fetcher backed by net/http with a utls Chrome ClientHello.
type Client struct {
	userAgent string
	maxBytes  int64
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the default Chrome user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithTransport replaces the HTTP transport. Used by tests against
// httptest servers, where the Chrome TLS dialer has nothing to impersonate.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// NewClient builds a Client with a 10 MiB body cap by default.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: chromeUA,
		maxBytes:  10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = &http.Transport{
			DialTLSContext: dialTLSChrome,
		}
	}
	return c
}

// Fetch retrieves the URL and returns the (size-capped) body bytes.
func (c *Client) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	client := &http.Client{Transport: c.transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	return body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
