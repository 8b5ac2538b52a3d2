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
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestTransport(t *testing.T) *HTTPTransport {
	t.Helper()
	tr, err := NewHTTPTransport(&HTTPTransportConfig{Client: &http.Client{Timeout: 5 * time.Second}})
	require.NoError(t, err)
	return tr
}

func get(tr *HTTPTransport, ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return tr.Execute(ctx, &Request{Method: http.MethodGet, URL: rawURL, Headers: headers})
}

func TestHTTPTransportConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *HTTPTransportConfig
		wantErr bool
	}{
		{name: "valid", config: &HTTPTransportConfig{Client: http.DefaultClient}},
		{name: "missing client", config: &HTTPTransportConfig{}, wantErr: true},
		{name: "negative body cap", config: &HTTPTransportConfig{Client: http.DefaultClient, MaxBodyBytes: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewHTTPTransport_NilConfig(t *testing.T) {
	_, err := NewHTTPTransport(nil)
	assert.Error(t, err)
}

func TestHTTPTransport_Execute_Success(t *testing.T) {
	var gotAuth, gotAccept, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("X-Request-ID", "req-1")
		_, _ = w.Write([]byte(`{"environmentVariables":[]}`))
	}))
	defer server.Close()

	tr := newTestTransport(t)
	resp, err := get(tr, context.Background(), server.URL, map[string]string{
		"Authorization": "Convex key",
		"Accept":        "application/json",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "Convex key", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPTransport_DefaultHeadersOverridden(t *testing.T) {
	var gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&HTTPTransportConfig{
		Client:  http.DefaultClient,
		Headers: map[string]string{"Accept": "text/plain"},
	})
	require.NoError(t, err)

	_, err = get(tr, context.Background(), server.URL, map[string]string{"Accept": "application/json"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotAccept)
}

func TestHTTPTransport_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantType  ErrorType
		retryable bool
	}{
		{name: "unauthorized", status: 401, body: `{"error":"invalid token"}`, wantType: ErrorTypeAuth},
		{name: "forbidden", status: 403, body: "", wantType: ErrorTypeAuth},
		{name: "not found", status: 404, body: "nope", wantType: ErrorTypeClient},
		{name: "rate limited", status: 429, body: "", wantType: ErrorTypeRateLimit, retryable: true},
		{name: "server", status: 503, body: "down", wantType: ErrorTypeServer, retryable: true},
		{name: "redirect", status: 302, body: "", wantType: ErrorTypeClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == 302 {
					w.Header().Set("Location", "http://127.0.0.1:1/")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := &http.Client{
				CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
			}
			tr, err := NewHTTPTransport(&HTTPTransportConfig{Client: client})
			require.NoError(t, err)

			_, err = get(tr, context.Background(), server.URL, nil)
			require.Error(t, err)

			var terr *TransportError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.wantType, terr.Type)
			assert.Equal(t, tt.status, terr.StatusCode)
			assert.Equal(t, tt.body, string(terr.Body))
			assert.Equal(t, tt.retryable, terr.IsRetryable())
			assert.True(t, terr.HasResponse())
		})
	}
}

func TestHTTPTransport_BodyLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&HTTPTransportConfig{Client: http.DefaultClient, MaxBodyBytes: 4})
	require.NoError(t, err)

	_, err = get(tr, context.Background(), server.URL, nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "0123", string(terr.Body))
}

func TestHTTPTransport_SingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := newTestTransport(t)
	_, err := get(tr, context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestHTTPTransport_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	tr := newTestTransport(t)
	_, err := get(tr, context.Background(), addr, nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrorTypeConnection, terr.Type)
	assert.False(t, terr.HasResponse())
	assert.Nil(t, terr.Body)
	assert.Contains(t, terr.Message, "connection error: ")
	assert.NotContains(t, terr.Message, addr)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	tr, err := NewHTTPTransport(&HTTPTransportConfig{Client: &http.Client{Timeout: 20 * time.Millisecond}})
	require.NoError(t, err)

	_, err = get(tr, context.Background(), server.URL, nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrorTypeTimeout, terr.Type)
	assert.Contains(t, terr.Message, "request timeout")
}

func TestHTTPTransport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newTestTransport(t)
	_, err := get(tr, ctx, "https://example.invalid/", nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrorTypeCancelled, terr.Type)
}

func TestHTTPTransport_InvalidRequest(t *testing.T) {
	tr := newTestTransport(t)

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "nil", req: nil},
		{name: "missing method", req: &Request{URL: "https://example.com"}},
		{name: "bad method", req: &Request{Method: "FETCH", URL: "https://example.com"}},
		{name: "missing url", req: &Request{Method: "GET"}},
		{name: "bad scheme", req: &Request{Method: "GET", URL: "ftp://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Execute(context.Background(), tt.req)
			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, ErrorTypeInvalidReq, terr.Type)
		})
	}
}

func TestHTTPTransport_RateLimiterCancelled(t *testing.T) {
	tr := newTestTransport(t)
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	require.True(t, limiter.Allow())
	tr.SetRateLimiter(limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := get(tr, ctx, "https://example.com/", nil)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrorTypeCancelled, terr.Type)
	assert.Equal(t, "rate limit wait cancelled", terr.Message)
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 5))
	assert.NotNil(t, NewRateLimiter(2, 0))
}

func TestTransportError_Error(t *testing.T) {
	withStatus := &TransportError{Type: ErrorTypeAuth, StatusCode: 401, Message: "denied"}
	assert.Equal(t, "auth error (status 401): denied", withStatus.Error())

	cause := errors.New("boom")
	noStatus := &TransportError{Type: ErrorTypeConnection, Message: "connection error: boom", Cause: cause}
	assert.Equal(t, "connection error: connection error: boom", noStatus.Error())
	assert.ErrorIs(t, noStatus, cause)
	assert.Equal(t, "connection", noStatus.ErrorType())
}
