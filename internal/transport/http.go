// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 1 << 20

// HTTPTransportConfig configures the HTTP transport.
type HTTPTransportConfig struct {
	// Client performs the requests. Required. Build it with pkg/httpclient.
	Client *http.Client

	// Headers are default headers applied to all requests
	Headers map[string]string

	// MaxBodyBytes caps the response body (default: DefaultMaxBodyBytes)
	MaxBodyBytes int64
}

// Validate checks if the configuration is valid.
func (c *HTTPTransportConfig) Validate() error {
	if c.Client == nil {
		return fmt.Errorf("client is required")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be non-negative, got %d", c.MaxBodyBytes)
	}
	return nil
}

// HTTPTransport implements Transport for HTTP/HTTPS requests.
// Each Execute call sends exactly one request.
type HTTPTransport struct {
	client       *http.Client
	headers      map[string]string
	maxBodyBytes int64
	rateLimiter  RateLimiter
}

// NewHTTPTransport creates an HTTP transport from cfg.
func NewHTTPTransport(cfg *HTTPTransportConfig) (*HTTPTransport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid HTTP transport config: %w", err)
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &HTTPTransport{
		client:       cfg.Client,
		headers:      cfg.Headers,
		maxBodyBytes: maxBody,
	}, nil
}

// SetRateLimiter configures rate limiting for this transport.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// Execute sends an HTTP request and returns the response.
// Non-2xx responses are returned as *TransportError carrying the body.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("invalid request: %s", err.Error()),
			Cause:   err,
		}
	}

	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{
				Type:    ErrorTypeCancelled,
				Message: "rate limit wait cancelled",
				Cause:   err,
			}
		}
	}

	httpReq, err := t.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{
			Type:    ErrorTypeInvalidReq,
			Message: fmt.Sprintf("failed to build HTTP request: %s", err.Error()),
			Cause:   err,
		}
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyHTTPError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBodyBytes))
	if err != nil {
		return nil, &TransportError{
			Type:       ErrorTypeConnection,
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("failed to read response body: %s", err.Error()),
			Retryable:  true,
			Cause:      err,
		}
	}

	requestID := httpResp.Header.Get("X-Request-ID")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, classifyHTTPStatusError(httpResp.StatusCode, body, requestID)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		RequestID:  requestID,
	}, nil
}

// validateRequest checks if the request is valid.
func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}

	validMethods := map[string]bool{
		"GET": true, "POST": true, "PUT": true, "DELETE": true,
		"PATCH": true, "HEAD": true, "OPTIONS": true,
	}
	if !validMethods[req.Method] {
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}

	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}

	return nil
}

// buildHTTPRequest constructs an http.Request from a transport Request.
func (t *HTTPTransport) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range t.headers {
		httpReq.Header.Set(key, value)
	}

	// Request headers override defaults
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	return httpReq, nil
}

// classifyHTTPError classifies HTTP client errors into TransportError types.
// Messages carry the cause text so callers can show something useful
// when no response body exists.
func classifyHTTPError(ctx context.Context, err error) *TransportError {
	if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return &TransportError{
			Type:    ErrorTypeCancelled,
			Message: "request cancelled",
			Cause:   err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeoutError(err) {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("request timeout: %s", unwrapURLError(err)),
			Retryable: true,
			Cause:     err,
		}
	}

	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("connection error: %s", unwrapURLError(err)),
		Retryable: isConnectionError(err),
		Cause:     err,
	}
}

// classifyHTTPStatusError classifies non-2xx responses into TransportError types.
func classifyHTTPStatusError(statusCode int, body []byte, requestID string) *TransportError {
	var errorType ErrorType
	var retryable bool

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
		retryable = true
	case statusCode == http.StatusRequestTimeout:
		errorType = ErrorTypeTimeout
		retryable = true
	case statusCode >= 500:
		errorType = ErrorTypeServer
		retryable = true
	default:
		errorType = ErrorTypeClient
	}

	message := fmt.Sprintf("request failed with status code %d", statusCode)
	if text := http.StatusText(statusCode); text != "" {
		message = fmt.Sprintf("%s (%s)", message, text)
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Body:       body,
		Message:    message,
		RequestID:  requestID,
		Retryable:  retryable,
	}
}

// unwrapURLError strips the "Get \"url\": " prefix net/http adds.
func unwrapURLError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// isTimeoutError checks if an error is a timeout error.
func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isConnectionError checks if an error is a connection error.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"eof",
	}

	for _, keyword := range connectionKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}
