package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/schedcli/internal/instrumentation"
	"github.com/teemow/schedcli/internal/logging"
)

// RequestIDHeader carries a fresh id on every request for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// TokenSource yields the current bearer token. session.Store satisfies it.
// Any error, including "no token", means the request is sent unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the scheduling API rooted at a base URL such as
// http://localhost:8080/api.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request. Zero, the default, means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMetrics records api_requests_total and api_request_duration_seconds.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client. tokens may be nil for a client that never authenticates.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithComponent(c.logger, "api")
	return c
}

// Response is the outcome of a successful (2xx) request.
type Response struct {
	Status int

	// NoContent is set for 204 responses, in which case Body is nil.
	NoContent bool

	// Body is the raw JSON payload; it is always valid JSON when NoContent is false.
	Body json.RawMessage
}

// Decode unmarshals the body into v. It returns ErrNoContent for a 204
// response so callers cannot mistake it for an empty object.
func (r *Response) Decode(v any) error {
	if r.NoContent {
		return ErrNoContent
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Request sends method to endpoint (relative to the base URL) with body
// encoded as JSON when non-nil.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s %s: %w", method, endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, &NetworkError{Op: method, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if token := c.currentToken(); token != "" {
		(&oauth2.Token{AccessToken: token}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(ctx, method, endpoint, 0, start)
		return nil, &NetworkError{Op: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	c.record(ctx, method, endpoint, resp.StatusCode, start)
	if err != nil {
		return nil, &NetworkError{Op: method, Endpoint: endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:   method,
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     string(data),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return &Response{Status: resp.StatusCode, NoContent: true}, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%s %s: %w: status %d with non-JSON body", method, endpoint, ErrMalformedResponse, resp.StatusCode)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

func (c *Client) currentToken() string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token()
	if err != nil {
		return ""
	}
	return token
}

func (c *Client) record(ctx context.Context, method, endpoint string, status int, start time.Time) {
	duration := time.Since(start)
	c.metrics.RecordAPIRequest(ctx, method, endpoint, status, duration)
	c.logger.Debug("api request",
		logging.Method(method),
		logging.Endpoint(instrumentation.TemplateEndpoint(endpoint)),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)
}
