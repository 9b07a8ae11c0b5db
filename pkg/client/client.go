// Package client is a Go client for the parley REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dasmlab/parley/pkg/server"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the address the server listens on by default.
const DefaultBaseURL = "http://localhost:8000"

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Detail)
}

// Client calls the detection and translation endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request timing.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logrus.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect returns the detected language of text. An empty provider uses
// the server default.
func (c *Client) Detect(ctx context.Context, text, provider string) (*server.DetectResponse, error) {
	req := server.DetectRequest{Text: text, Provider: optional(provider)}
	var resp server.DetectResponse
	if err := c.do(ctx, http.MethodPost, "/detect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Translate translates text into target. Empty source and provider are
// left out so the server detects the source and uses its default provider.
func (c *Client) Translate(ctx context.Context, text, target, source, provider string) (*server.TranslateResponse, error) {
	req := server.TranslateRequest{
		Text:     text,
		Target:   target,
		Source:   optional(source),
		Provider: optional(provider),
	}
	var resp server.TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/translate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Languages returns the languages offered by the server.
func (c *Client) Languages(ctx context.Context) (*server.LanguagesResponse, error) {
	var resp server.LanguagesResponse
	if err := c.do(ctx, http.MethodGet, "/languages", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns the server status and default provider.
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var resp server.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"request_id":  resp.Header.Get(server.RequestIDHeader),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Debug("API request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Detail = errBody.Detail
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
