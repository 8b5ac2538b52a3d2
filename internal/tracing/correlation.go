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

// Package tracing provides correlation IDs and OpenTelemetry setup.
package tracing

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// CorrelationID ties together the log lines, spans and outbound requests
// produced by one validation. It uses RFC 4122 UUID format.
type CorrelationID string

type correlationKeyType struct{}

var correlationKey = correlationKeyType{}

// HeaderCorrelationID is the header used to propagate the correlation ID.
const HeaderCorrelationID = "X-Correlation-ID"

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// NewCorrelationID generates a new unique correlation ID.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

// String returns the string representation of the correlation ID.
func (c CorrelationID) String() string {
	return string(c)
}

// IsValid checks if the correlation ID is a valid UUID format.
func (c CorrelationID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// ToContext adds the correlation ID to the context.
func ToContext(ctx context.Context, id CorrelationID) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// FromContextOrEmpty retrieves the correlation ID from the context.
// Returns empty string if no correlation ID is found.
func FromContextOrEmpty(ctx context.Context) CorrelationID {
	if id, ok := ctx.Value(correlationKey).(CorrelationID); ok {
		return id
	}
	return ""
}

// Ensure returns ctx unchanged if it already carries a correlation ID,
// otherwise a child context with a freshly generated one.
func Ensure(ctx context.Context) (context.Context, CorrelationID) {
	if id := FromContextOrEmpty(ctx); id != "" {
		return ctx, id
	}
	id := NewCorrelationID()
	return ToContext(ctx, id), id
}

// InjectIntoRequest adds the correlation ID from ctx to outbound request headers.
func InjectIntoRequest(ctx context.Context, req *http.Request) {
	if id := FromContextOrEmpty(ctx); id.IsValid() {
		req.Header.Set(HeaderCorrelationID, id.String())
	}
}
