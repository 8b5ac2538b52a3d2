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

package convex

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/appconn/internal/connection"
	"github.com/tombee/appconn/internal/transport"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
	"github.com/tombee/appconn/pkg/security"
)

// fakeRequester records requests and returns a canned result.
type fakeRequester struct {
	mu       sync.Mutex
	resp     *transport.Response
	err      error
	requests []*transport.Request
}

func (f *fakeRequester) Execute(_ context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &transport.Response{StatusCode: http.StatusOK}, nil
}

func convexConfig(adminKey string) connection.Config {
	return connection.Config{
		App:         connection.AppConvex,
		Method:      connection.MethodAdminKey,
		Credentials: connection.Credentials{AdminKey: adminKey},
	}
}

func TestValidateCredentials_NoDeploymentName(t *testing.T) {
	guard := &fakeGuard{}
	requester := &fakeRequester{}
	v := NewValidator(guard, requester)

	cfg := convexConfig("prod:opaque-key-without-separator")
	got, err := v.ValidateCredentials(context.Background(), cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg.Credentials, got); diff != "" {
		t.Errorf("credentials changed (-want +got):\n%s", diff)
	}
	assert.Empty(t, guard.calls, "guard must not be consulted")
	assert.Empty(t, requester.requests, "no probe may be sent")
}

func TestValidateCredentials_Success(t *testing.T) {
	guard := &fakeGuard{}
	requester := &fakeRequester{resp: &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"environmentVariables":[]}`)}}
	v := NewValidator(guard, requester)

	cfg := convexConfig("acme-prod-42|0123456789abcdef")
	got, err := v.ValidateCredentials(context.Background(), cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg.Credentials, got); diff != "" {
		t.Errorf("credentials changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"https://acme-prod-42.convex.cloud"}, guard.calls)

	want := []*transport.Request{{
		Method: http.MethodGet,
		URL:    "https://acme-prod-42.convex.cloud/api/v1/list_environment_variables",
		Headers: map[string]string{
			"Authorization": "Convex acme-prod-42|0123456789abcdef",
			"Accept":        "application/json",
		},
	}}
	if diff := cmp.Diff(want, requester.requests); diff != "" {
		t.Errorf("probe requests mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateCredentials_GuardFailurePropagates(t *testing.T) {
	unsafe := &security.UnsafeAddressError{
		URL:    "https://acme-prod-42.convex.cloud",
		Host:   "acme-prod-42.convex.cloud",
		IP:     "127.0.0.1",
		Reason: "private/local IP addresses are blocked",
	}
	guard := &fakeGuard{err: unsafe}
	requester := &fakeRequester{}
	v := NewValidator(guard, requester)

	_, err := v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|key"))
	assert.Same(t, unsafe, err)
	assert.False(t, appconnerrors.IsBadRequest(err))
	assert.Empty(t, requester.requests, "no probe may be sent after a guard failure")
}

func TestValidateCredentials_ProbeFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name: "error response with json body",
			err: &transport.TransportError{
				Type:       transport.ErrorTypeAuth,
				StatusCode: http.StatusUnauthorized,
				Body:       []byte(`{"error":"invalid token"}`),
				Message:    "request failed with status code 401 (Unauthorized)",
			},
			wantMessage: `Failed to validate credentials: {"error":"invalid token"}`,
		},
		{
			name: "error response without body",
			err: &transport.TransportError{
				Type:       transport.ErrorTypeServer,
				StatusCode: http.StatusBadGateway,
				Body:       []byte{},
				Message:    "request failed with status code 502 (Bad Gateway)",
			},
			wantMessage: "Failed to validate credentials: request failed with status code 502 (Bad Gateway)",
		},
		{
			name: "transport connection failure",
			err: &transport.TransportError{
				Type:    transport.ErrorTypeConnection,
				Message: "connection error: dial tcp: connection refused",
			},
			wantMessage: "Failed to validate credentials: connection error: dial tcp: connection refused",
		},
		{
			name:        "opaque failure",
			err:         errors.New("socket timeout"),
			wantMessage: "Unable to validate connection: socket timeout",
		},
		{
			name:        "opaque failure without message",
			err:         errors.New(""),
			wantMessage: "Unable to validate connection: Verify credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := &fakeRequester{err: tt.err}
			v := NewValidator(&fakeGuard{}, requester)

			got, err := v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|key"))
			require.Error(t, err)
			assert.Equal(t, connection.Credentials{}, got)

			var badReq *appconnerrors.BadRequestError
			require.ErrorAs(t, err, &badReq)
			assert.Equal(t, tt.wantMessage, badReq.Error())
			assert.ErrorIs(t, err, tt.err)
			assert.Len(t, requester.requests, 1, "exactly one attempt")
		})
	}
}

func TestCheck_Outcomes(t *testing.T) {
	v := NewValidator(&fakeGuard{}, &fakeRequester{})

	res, err := v.Check(context.Background(), convexConfig("no-name"))
	require.NoError(t, err)
	assert.Equal(t, connection.OutcomeSkipped, res.Outcome)

	res, err = v.Check(context.Background(), convexConfig("acme-prod-42|key"))
	require.NoError(t, err)
	assert.Equal(t, connection.OutcomeVerified, res.Outcome)
	assert.Equal(t, "acme-prod-42|key", res.Credentials.AdminKey)
}

func TestValidator_ListItem(t *testing.T) {
	v := NewValidator(&fakeGuard{}, &fakeRequester{})

	want := connection.ListItem{
		Name:    "Convex",
		App:     connection.AppConvex,
		Methods: []connection.Method{connection.MethodAdminKey},
	}
	if diff := cmp.Diff(want, v.ListItem()); diff != "" {
		t.Errorf("ListItem mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, connection.AppConvex, v.App())
}

func TestValidator_LogsNeverContainAdminKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	requester := &fakeRequester{err: &transport.TransportError{
		Type:       transport.ErrorTypeAuth,
		StatusCode: http.StatusUnauthorized,
		Message:    "request failed with status code 401 (Unauthorized)",
	}}
	v := NewValidator(&fakeGuard{}, requester, WithLogger(logger))

	_, err := v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|topsecretvalue"))
	require.Error(t, err)
	_, err = v.ValidateCredentials(context.Background(), convexConfig("no-name-topsecretvalue"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"app":"convex"`)
	assert.Contains(t, out, `"correlation_id"`)
	assert.NotContains(t, out, "topsecretvalue")
}

func TestValidator_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	requester := &fakeRequester{err: &transport.TransportError{
		Type:       transport.ErrorTypeAuth,
		StatusCode: http.StatusForbidden,
		Message:    "forbidden",
	}}
	v := NewValidator(&fakeGuard{}, requester, WithTracerProvider(tp))

	_, err := v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|key"))
	require.Error(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"convex.probe", "convex.validate"}, names)
}

// tlsRequester returns a transport whose connections all reach server,
// whatever host the request names.
func tlsRequester(t *testing.T, server *httptest.Server) *transport.HTTPTransport {
	t.Helper()

	base := server.Client().Transport.(*http.Transport).Clone()
	base.TLSClientConfig.ServerName = "example.com"
	addr := server.Listener.Addr().String()
	base.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	tr, err := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		Client: &http.Client{Transport: base},
	})
	require.NoError(t, err)
	return tr
}

func TestValidateCredentials_OverHTTP(t *testing.T) {
	var mu sync.Mutex
	var gotHost, gotPath, gotAuth, gotAccept string

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotHost, gotPath = r.Host, r.URL.Path
		gotAuth, gotAccept = r.Header.Get("Authorization"), r.Header.Get("Accept")
		mu.Unlock()

		if r.Header.Get("Authorization") != "Convex acme-prod-42|good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("{\"error\": \"invalid token\"}\n"))
			return
		}
		_, _ = w.Write([]byte(`{"environmentVariables":[]}`))
	}))
	defer server.Close()

	v := NewValidator(&fakeGuard{}, tlsRequester(t, server))

	creds, err := v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|good"))
	require.NoError(t, err)
	assert.Equal(t, "acme-prod-42|good", creds.AdminKey)

	mu.Lock()
	assert.Equal(t, "acme-prod-42.convex.cloud", gotHost)
	assert.Equal(t, "/api/v1/list_environment_variables", gotPath)
	assert.Equal(t, "Convex acme-prod-42|good", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	mu.Unlock()

	_, err = v.ValidateCredentials(context.Background(), convexConfig("acme-prod-42|bad"))
	require.Error(t, err)
	assert.True(t, appconnerrors.IsBadRequest(err))
	assert.Equal(t, `Failed to validate credentials: {"error":"invalid token"}`, err.Error())
}
