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
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/appconn/internal/connection"
	"github.com/tombee/appconn/internal/log"
	"github.com/tombee/appconn/internal/tracing"
	"github.com/tombee/appconn/internal/transport"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
)

// ProbePath is the endpoint called to confirm an admin key.
const ProbePath = "/api/v1/list_environment_variables"

const tracerName = "github.com/tombee/appconn/internal/connection/convex"

// Requester sends a single request. *transport.HTTPTransport implements it.
type Requester interface {
	Execute(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Validator checks Convex admin keys against their deployment.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	guard     AddressGuard
	requester Requester
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(v *Validator) {
		if tp != nil {
			v.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewValidator creates a Validator that checks endpoints with guard and
// probes them with requester.
func NewValidator(guard AddressGuard, requester Requester, opts ...Option) *Validator {
	v := &Validator{
		guard:     guard,
		requester: requester,
		logger:    log.Discard(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = log.WithApp(v.logger, string(connection.AppConvex))
	return v
}

// App implements connection.Validator.
func (v *Validator) App() connection.App {
	return connection.AppConvex
}

// ListItem implements connection.Validator.
func (v *Validator) ListItem() connection.ListItem {
	return ListItem()
}

// ValidateCredentials confirms cfg's admin key with one authenticated
// request to its deployment and returns the credentials unchanged.
//
// Keys without a deployment name are returned as-is with no request made.
// Errors from the address guard are returned unchanged; probe failures are
// returned as *errors.BadRequestError.
func (v *Validator) ValidateCredentials(ctx context.Context, cfg connection.Config) (connection.Credentials, error) {
	res, err := v.Check(ctx, cfg)
	if err != nil {
		return connection.Credentials{}, err
	}
	return res.Credentials, nil
}

// Check implements connection.Validator. It behaves like
// ValidateCredentials and also reports whether a probe was made.
func (v *Validator) Check(ctx context.Context, cfg connection.Config) (connection.Result, error) {
	ctx, correlationID := tracing.Ensure(ctx)
	logger := log.WithCorrelationID(v.logger, correlationID.String())

	ctx, span := v.tracer.Start(ctx, "convex.validate",
		trace.WithAttributes(attribute.String("appconn.app", string(connection.AppConvex))),
	)
	defer span.End()

	adminKey := cfg.Credentials.AdminKey

	deploymentURL, ok, err := ResolveDeploymentURL(ctx, v.guard, adminKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "address check failed")
		logger.WarnContext(ctx, "deployment address rejected", log.Error(err))
		return connection.Result{}, err
	}
	if !ok {
		span.SetAttributes(attribute.Bool("appconn.skipped", true))
		logger.DebugContext(ctx, "admin key carries no deployment name, skipping probe",
			"admin_key", log.SanitizeAPIKey(adminKey),
		)
		return connection.Result{Credentials: cfg.Credentials, Outcome: connection.OutcomeSkipped}, nil
	}

	logger = logger.With(log.DeploymentKey, deploymentURL)
	span.SetAttributes(attribute.String("appconn.deployment_url", deploymentURL))

	if err := v.probe(ctx, deploymentURL, adminKey); err != nil {
		failure := classifyProbeError(err)
		badReq := &appconnerrors.BadRequestError{
			Message: failure.userMessage(),
			Cause:   err,
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		logger.WarnContext(ctx, "admin key probe failed", log.Error(err))
		return connection.Result{}, badReq
	}

	logger.DebugContext(ctx, "admin key verified")
	return connection.Result{Credentials: cfg.Credentials, Outcome: connection.OutcomeVerified}, nil
}

// probe sends the single verification request.
func (v *Validator) probe(ctx context.Context, deploymentURL, adminKey string) error {
	ctx, span := v.tracer.Start(ctx, "convex.probe", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	start := time.Now()
	resp, err := v.requester.Execute(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    deploymentURL + ProbePath,
		Headers: map[string]string{
			"Authorization": "Convex " + adminKey,
			"Accept":        "application/json",
		},
	})
	log.Trace(ctx, v.logger, "probe returned", log.Duration(time.Since(start).Milliseconds()))

	if err != nil {
		var terr *transport.TransportError
		if errors.As(err, &terr) && terr.HasResponse() {
			span.SetAttributes(attribute.Int("http.response.status_code", terr.StatusCode))
		}
		span.SetStatus(codes.Error, "probe failed")
		return err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return nil
}
