// Package api is the HTTP client for the refinance backend. It owns request
// plumbing only: auth header, JSON codec, typed errors, metrics. Workflow
// state lives in internal/flow.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	clientReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refinance_client_requests_total",
		Help: "Total backend requests issued, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	clientReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refinance_client_request_duration_seconds",
		Help:    "Latency distribution of backend requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

// Error is a failed backend response. Message is the server-provided detail
// when present, or a generic fallback keyed by status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsClientError reports whether err is a 4xx backend error: the request was
// understood and rejected, so retrying without changes is pointless.
func IsClientError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// IsServerError reports whether err is a 5xx backend error.
func IsServerError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}

// errorPayload matches both error body shapes the backend emits.
type errorPayload struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client talks to the refinance backend. The token is an opaque bearer
// credential; the client never inspects or refreshes it.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger attaches a logger to the client.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a backend client for the given base URL and token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one request and decodes the JSON response into out (when non-nil).
// Every call is at-most-once from the client's perspective: cancellation after
// the request reaches the server does not undo the server-side effect.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	timer := prometheus.NewTimer(clientReqDuration.WithLabelValues(method, endpoint))
	defer timer.ObserveDuration()

	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Token", c.token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpc.Do(req)
	if err != nil {
		clientReqTotal.WithLabelValues(method, endpoint, "0").Inc()
		c.log.Warn("backend request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	clientReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("request failed: %d", resp.StatusCode),
		}
		var payload errorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil {
			switch {
			case payload.Detail != "":
				apiErr.Message = payload.Detail
			case payload.Error != "":
				apiErr.Message = payload.Error
			}
		}
		c.log.Debug("backend rejected request",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
