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

package shared

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"

	"github.com/tombee/appconn/internal/config"
	"github.com/tombee/appconn/internal/connection"
	"github.com/tombee/appconn/internal/connection/convex"
	"github.com/tombee/appconn/internal/log"
	"github.com/tombee/appconn/internal/secrets"
	"github.com/tombee/appconn/internal/tracing"
	"github.com/tombee/appconn/internal/transport"
	"github.com/tombee/appconn/pkg/httpclient"
	"github.com/tombee/appconn/pkg/security"
)

// Runtime holds everything a command needs to validate connections.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Connections *connection.Registry
	Secrets     *secrets.Registry
	Keychain    *secrets.KeychainProvider

	shutdown tracing.ShutdownFunc
}

// NewRuntime loads configuration, applies the global flags and wires the
// validators. Logs and spans go to stderr.
func NewRuntime(stderr io.Writer) (*Runtime, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := GetConfigPath(); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if GetVerbose() {
		cfg.Log.Level = "debug"
	}
	if GetQuiet() {
		cfg.Log.Level = "error"
	}
	if GetTrace() {
		cfg.Tracing.Enabled = true
	}

	logger := log.New(cfg.LoggerConfig(stderr))

	version, _, _ := GetVersion()
	shutdown, err := tracing.Setup(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Writer:         stderr,
	})
	if err != nil {
		return nil, err
	}

	guard := security.NewURLGuard(&cfg.Guard)

	client, err := httpclient.New(httpclient.Config{
		Timeout:     cfg.HTTP.Timeout,
		UserAgent:   cfg.HTTP.UserAgent,
		DialContext: guard.SecureDialContext(nil),
		Logger:      log.WithComponent(logger, "httpclient"),
	})
	if err != nil {
		return nil, errors.Join(err, shutdown(context.Background()))
	}

	tr, err := transport.NewHTTPTransport(&transport.HTTPTransportConfig{
		Client:       client,
		MaxBodyBytes: cfg.Probe.MaxBodyBytes,
	})
	if err != nil {
		return nil, errors.Join(err, shutdown(context.Background()))
	}
	tr.SetRateLimiter(transport.NewRateLimiter(cfg.Probe.RateLimit, cfg.Probe.Burst))

	connections := connection.NewRegistry(logger)
	validator := convex.NewValidator(guard, tr,
		convex.WithLogger(logger),
		convex.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err := connections.Register(validator); err != nil {
		return nil, errors.Join(err, shutdown(context.Background()))
	}

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Connections: connections,
		Secrets:     secrets.NewDefaultRegistry(secrets.DefaultKeychainService),
		Keychain:    secrets.NewKeychainProvider(secrets.DefaultKeychainService),
		shutdown:    shutdown,
	}, nil
}

// Close writes the metrics textfile, when configured, and flushes spans.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Config != nil && r.Config.Metrics.Textfile != "" {
		errs = append(errs, connection.WriteMetrics(r.Config.Metrics.Textfile))
	}
	if r.shutdown != nil {
		errs = append(errs, r.shutdown(ctx))
	}
	return errors.Join(errs...)
}
