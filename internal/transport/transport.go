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

// Package transport provides the request abstraction used by credential probes.
//
// HTTPTransport sends one request and either returns a Response (2xx) or a
// *TransportError describing what went wrong. Error responses keep their body
// so callers can surface what the remote service said.
package transport

import (
	"context"
)

// Request represents a transport-agnostic request.
type Request struct {
	// Method is the HTTP method. Required.
	Method string

	// URL is the full request URL. Required.
	URL string

	// Headers are request headers (case-insensitive).
	Headers map[string]string

	// Body is the request body. Probes send none.
	Body []byte
}

// Response represents a transport-agnostic response.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Headers contains response headers
	Headers map[string][]string

	// Body is the response body
	Body []byte

	// RequestID is the service request ID, if the service sent one
	RequestID string
}

// RateLimiter provides rate limiting for transport requests.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	// Wait blocks until a request is allowed under the rate limit.
	// Returns an error if the context is cancelled before the request can proceed.
	Wait(ctx context.Context) error
}
