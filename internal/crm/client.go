// Package crm is a minimal client for the CRM's custom field endpoint.
//
// A Client performs exactly one HTTP exchange per call. Retry policy lives
// with the caller, which needs to tell a received response (any status) apart
// from a transport failure; CreateCustomField reports the former as a
// Response and the latter as an error.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// FieldPayload is the request body for creating one custom field.
type FieldPayload struct {
	Parent     string   `json:"parent"`
	Type       string   `json:"type"`
	IsHidden   bool     `json:"isHidden"`
	IsFeatured bool     `json:"isFeatured"`
	Name       string   `json:"name"`
	ListValues []string `json:"listValues"`
}

// Response is a received HTTP response, whatever its status.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the status is in the 2xx range.
// Redirects are not followed, so a 3xx lands here as not OK.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client posts custom field definitions to a fixed endpoint.
type Client struct {
	endpoint *url.URL
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport. Tests use it to stub the network.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// NewClient constructs a client for the given endpoint URL.
// timeout bounds each request; zero selects DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		endpoint: u,
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("crm endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse crm endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("crm endpoint must include scheme and host (got %q)", raw)
	}
	return u, nil
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// CreateCustomField sends one POST with payload as JSON, authenticated with token.
//
// A non-nil error means no complete response was received (dial, DNS,
// timeout, body read). Any received response, including 4xx/5xx, is
// returned with a nil error.
func (c *Client) CreateCustomField(ctx context.Context, token string, payload FieldPayload) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(b),
	}, nil
}
