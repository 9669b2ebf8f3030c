// Package httpclient wraps net/http with request logging, default headers,
// JSON helpers and retries for idempotent requests.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	stdhttp "net/http"
	"net/url"
	"time"
)

// Client wraps http.Client with logging and retries.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	retries     int
	backoff     time.Duration
	headers     map[string]string
	urlRedactor func(*url.URL) string
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries retries idempotent requests n times on transport errors and 5xx,
// waiting backoff, 2*backoff, ... between attempts.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return WithHeaders(map[string]string{"User-Agent": ua})
}

// WithURLRedactor sets URL redactor for logs.
func WithURLRedactor(f func(*url.URL) string) Option {
	return func(c *Client) { c.urlRedactor = f }
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConnsPerHost = 4
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc:      &stdhttp.Client{Timeout: 15 * time.Second, Transport: tr},
		log:     slog.Default(),
		backoff: 200 * time.Millisecond,
		headers: make(map[string]string),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// redactURL returns a URL string safe for logs. Webhook URLs carry their
// secret in the path, so by default only scheme and host are kept.
func (c *Client) redactURL(u *url.URL) string {
	if c.urlRedactor != nil {
		return c.urlRedactor(u)
	}
	return u.Scheme + "://" + u.Host
}

func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 64<<10)
	_ = b.Close()
}

func idempotent(method string) bool {
	switch method {
	case stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodOptions:
		return true
	}
	return false
}

func retryable(resp *stdhttp.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return true
		}
		var oe *net.OpError
		return errors.As(err, &oe) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
	}
	return resp.StatusCode == stdhttp.StatusTooManyRequests || resp.StatusCode >= 500
}

// Do sends req with ctx. Idempotent requests are retried according to WithRetries;
// everything else is sent exactly once.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	attempts := 1
	if idempotent(req.Method) && req.Body == nil {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		u := c.redactURL(r.URL)
		start := time.Now()
		resp, err := c.hc.Do(r)
		dur := time.Since(start)

		if attempt == attempts || !retryable(resp, err) {
			if err != nil {
				c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Any("error", err))
				return nil, err
			}
			c.log.Debug("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Int("attempt", attempt))
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &StatusError{Method: r.Method, URL: u, Code: resp.StatusCode}
			drainAndClose(resp.Body)
		}
		wait := c.backoff * time.Duration(1<<uint(attempt-1))
		c.log.Warn("http request retry", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", lastErr))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// PostJSON marshals body and POSTs it to rawURL. Non-2xx responses yield *StatusError.
// The response body is discarded.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: req.Method, URL: c.redactURL(req.URL), Code: resp.StatusCode}
	}
	return nil
}

// GetJSON fetches rawURL and decodes a 2xx JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: req.Method, URL: c.redactURL(req.URL), Code: resp.StatusCode}
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}
