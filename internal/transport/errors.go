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
	"fmt"
)

// ErrorType classifies transport errors.
type ErrorType string

const (
	// ErrorTypeConnection indicates network or DNS errors
	ErrorTypeConnection ErrorType = "connection"

	// ErrorTypeTimeout indicates request timeout or deadline exceeded
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeAuth indicates authentication failure (401, 403)
	ErrorTypeAuth ErrorType = "auth"

	// ErrorTypeRateLimit indicates rate limiting (429 Too Many Requests)
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates server errors (5xx)
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeClient indicates other non-2xx responses
	ErrorTypeClient ErrorType = "client"

	// ErrorTypeInvalidReq indicates request validation error (invalid method, URL, etc.)
	ErrorTypeInvalidReq ErrorType = "invalid_request"

	// ErrorTypeCancelled indicates context was cancelled
	ErrorTypeCancelled ErrorType = "cancelled"
)

// TransportError represents a structured error from transport execution.
type TransportError struct {
	// Type classifies the error
	Type ErrorType

	// StatusCode is the HTTP status code if a response was received.
	// Zero for non-HTTP errors (connection, timeout, etc.)
	StatusCode int

	// Body is the raw response body of an error response.
	// Nil when no response was received.
	Body []byte

	// Message describes the failure. It never contains request headers.
	Message string

	// RequestID is the request ID from the service, if any
	RequestID string

	// Retryable indicates whether a caller could reasonably retry.
	// The transport itself never retries.
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *TransportError) ErrorType() string {
	return string(e.Type)
}

// IsRetryable returns true if the error could be retried.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

// HasResponse reports whether the remote service answered.
func (e *TransportError) HasResponse() bool {
	return e.StatusCode != 0
}
