// Package client provides HTTP client functionality for the OCI Logging Analytics API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tareqmamari/logan-mcp-server/internal/config"
	mcperrors "github.com/tareqmamari/logan-mcp-server/internal/errors"
	"github.com/tareqmamari/logan-mcp-server/internal/metrics"
	"github.com/tareqmamari/logan-mcp-server/internal/security"
	"github.com/tareqmamari/logan-mcp-server/internal/tracing"
)

// APIVersion is the path prefix of every Logging Analytics endpoint.
const APIVersion = "/20200601"

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "opc-request-id"

// Authenticator is the interface for adding authentication to requests
type Authenticator interface {
	Authenticate(req *http.Request) error
}

// Recorder receives backend request metrics.
type Recorder interface {
	RecordRequest(success bool, latency time.Duration, statusCode int)
	RecordRetry()
	RecordRateLimitHit()
	SetBreakerState(state int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(bool, time.Duration, int) {}
func (nopRecorder) RecordRetry()                           {}
func (nopRecorder) RecordRateLimitHit()                    {}
func (nopRecorder) SetBreakerState(int)                    {}

// Client is an HTTP client for the Logging Analytics API
type Client struct {
	httpClient    *http.Client
	config        *config.Config
	logger        *zap.Logger
	rateLimiter   *rate.Limiter
	authenticator Authenticator
	breaker       *gobreaker.CircuitBreaker
	recorder      Recorder
	version       string
}

// Option customises a Client.
type Option func(*Client)

// WithRecorder sends request metrics to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithHTTPClient replaces the transport-level client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// New creates a new API client
func New(cfg *config.Config, authenticator Authenticator, logger *zap.Logger, version string, opts ...Option) (*Client, error) {
	if authenticator == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if !cfg.TLSVerify {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- explicit operator opt-out
		logger.Warn("TLS certificate verification is DISABLED - this is insecure and should only be used for testing",
			zap.String("service_url", cfg.ServiceURL),
		)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	var rateLimiter *rate.Limiter
	if cfg.EnableRateLimit {
		rateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
	}

	if version == "" {
		version = "dev"
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config:        cfg,
		logger:        logger,
		rateLimiter:   rateLimiter,
		authenticator: authenticator,
		recorder:      nopRecorder{},
		version:       version,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(cfg, logger, c.recorder)

	return c, nil
}

func newBreaker(cfg *config.Config, logger *zap.Logger, recorder Recorder) *gobreaker.CircuitBreaker {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "logging-analytics",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			recorder.SetBreakerState(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Namespace is the configured Logging Analytics namespace.
func (c *Client) Namespace() string {
	return c.config.Namespace
}

// Request represents an HTTP request
type Request struct {
	Method  string
	Path    string // relative to /20200601/namespaces/{namespace}
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	RequestID  string
}

// statusError marks a retryable HTTP status inside the breaker.
type statusError struct {
	resp *Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.resp.StatusCode, string(e.resp.Body))
}

// Do executes an HTTP request with retry logic and maps failures to structured errors.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	requestID := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))

	ctx, span := tracing.APISpan(ctx, req.Method, req.Path)
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			shift := min(attempt-1, 30)
			waitTime := c.config.RetryWaitMin * time.Duration(1<<shift)
			if waitTime > c.config.RetryWaitMax {
				waitTime = c.config.RetryWaitMax
			}

			c.logger.Debug("Retrying request",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("wait", waitTime),
			)
			c.recorder.RecordRetry()

			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				tracing.RecordError(span, ctx.Err())
				return nil, ctx.Err()
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			resp, err := c.doRequest(ctx, req, requestID)
			if err != nil {
				return nil, err
			}
			if shouldRetry(resp.StatusCode) {
				return nil, &statusError{resp: resp}
			}
			return resp, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			tracing.RecordError(span, err)
			return nil, mcperrors.NewCircuitOpen()
		}

		var se *statusError
		switch {
		case errors.As(err, &se):
			lastErr = mcperrors.FromHTTPStatus(se.resp.StatusCode, errorMessage(se.resp.Body))
			continue
		case err != nil:
			lastErr = err
			if isRetryable(err) {
				continue
			}
			tracing.RecordError(span, err)
			return nil, err
		}

		resp := result.(*Response)
		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := mcperrors.FromHTTPStatus(resp.StatusCode, errorMessage(resp.Body))
			tracing.RecordError(span, apiErr)
			return nil, apiErr
		}
		tracing.SetSuccess(span)
		return resp, nil
	}

	tracing.RecordError(span, lastErr)
	var structured *mcperrors.StructuredError
	if errors.As(lastErr, &structured) {
		return nil, structured
	}
	return nil, mcperrors.NewNetworkError(fmt.Sprintf("max retries exceeded: %v", lastErr))
}

func (c *Client) doRequest(ctx context.Context, req *Request, requestID string) (*Response, error) {
	if c.rateLimiter != nil {
		r := c.rateLimiter.Reserve()
		if delay := r.Delay(); delay > 0 {
			c.recorder.RecordRateLimitHit()
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				r.Cancel()
				return nil, fmt.Errorf("rate limit wait failed: %w", ctx.Err())
			}
		}
	}

	requestURL := c.URL(req.Path)
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}
	logURL := security.MaskURL(requestURL)

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", fmt.Sprintf("logan-mcp-server/%s", c.version))
	httpReq.Header.Set(RequestIDHeader, requestID)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	// Signing covers the headers above, so it runs last.
	if err := c.authenticator.Authenticate(httpReq); err != nil {
		return nil, mcperrors.NewAuthFailed(security.SanitizeError(err))
	}

	c.logger.Debug("Executing HTTP request",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("url", logURL),
		zap.Any("headers", security.MaskSensitiveHeaders(httpReq.Header)),
	)

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)

	if err != nil {
		c.recorder.RecordRequest(false, duration, 0)
		c.logger.Error("HTTP request failed",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("url", logURL),
			zap.Duration("duration", duration),
		)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.recorder.RecordRequest(httpResp.StatusCode < http.StatusBadRequest, duration, httpResp.StatusCode)
	c.logger.Debug("HTTP request completed",
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("url", logURL),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("response_size", len(body)),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
		RequestID:  requestID,
	}, nil
}

// URL returns the absolute URL of a namespace-relative path.
func (c *Client) URL(path string) string {
	base := c.config.ServiceURL + APIVersion + "/namespaces/" + url.PathEscape(c.config.Namespace)
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}

// errorMessage extracts the message of an OCI error body, falling back to the raw body.
func errorMessage(body []byte) string {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code != "" {
			return apiErr.Code + ": " + apiErr.Message
		}
		return apiErr.Message
	}
	return strings.TrimSpace(string(body))
}

// isRetryable determines if an error is retryable (transient network errors)
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var structured *mcperrors.StructuredError
	if errors.As(err, &structured) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH) ||
			errors.Is(opErr.Err, syscall.ETIMEDOUT) {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset",
		"connection refused",
		"network is unreachable",
		"i/o timeout",
		"tls handshake timeout",
		"eof",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// shouldRetry determines if an HTTP status code should trigger a retry
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Close closes the client and releases resources
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
