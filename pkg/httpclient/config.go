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

package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout is the overall request timeout, including reading the body.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// DialContext replaces the default dialer. Used to plug in
	// security.URLGuard.SecureDialContext.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// FollowRedirects enables redirect following (default: false).
	FollowRedirects bool

	// PropagateCorrelationID sends the context's correlation ID as a request
	// header. Leave it off for requests to third-party hosts.
	PropagateCorrelationID bool

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		UserAgent: "appconn/1.0",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
