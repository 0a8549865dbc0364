// Package client is the outbound HTTP helper shared by the API-backed strategies.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const (
	MobileUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	PCUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes = 8 << 20
)

var (
	ErrRateLimited = errors.New("upstream rate limited")
	ErrNotFound    = errors.New("upstream returned not found")
)

// StatusError is returned by Response.Check for any other non-200 status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.StatusCode, e.URL)
}

// Client wraps http.Client with a default user agent and an optional proxy.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option customises a Client at construction.
type Option func(*Client)

// WithUserAgent sets the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithProxy routes every request through proxyURL. Invalid values are ignored.
func WithProxy(proxyURL string) Option {
	return func(c *Client) {
		if proxyURL == "" {
			return
		}
		u, err := url.Parse(proxyURL)
		if err != nil {
			return
		}
		if t, ok := c.httpClient.Transport.(*http.Transport); ok {
			t.Proxy = http.ProxyURL(u)
		}
	}
}

// New builds a client whose requests are bounded by timeout. Redirects are followed.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		userAgent: MobileUA,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption customises a single request.
type RequestOption func(*http.Request)

// Header sets a request header.
func Header(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Query adds a query parameter.
func Query(key, value string) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		q.Set(key, value)
		r.URL.RawQuery = q.Encode()
	}
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	// FinalURL is the URL after redirects.
	FinalURL string
	Header   http.Header
	Body     []byte
}

// Get performs a GET request and reads the body.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	for _, opt := range opts {
		opt(req)
	}
	return c.do(req)
}

// PostJSON sends body as a JSON request.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body []byte, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// OK reports a 200 status.
func (r *Response) OK() bool { return r.StatusCode == http.StatusOK }

// Check maps non-200 statuses to errors.
func (r *Response) Check() error {
	switch r.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return &StatusError{StatusCode: r.StatusCode, URL: r.FinalURL}
	}
}

// JSON parses the body as an untyped tree.
func (r *Response) JSON() (gjson.Result, error) {
	if !gjson.ValidBytes(r.Body) {
		return gjson.Result{}, errors.New("response is not valid json")
	}
	return gjson.ParseBytes(r.Body), nil
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Document parses the body as HTML.
func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
