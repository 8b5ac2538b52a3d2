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

// Package httpclient builds the *http.Client used for credential probes.
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.DialContext = guard.SecureDialContext(nil)
//	client, err := httpclient.New(cfg)
//
// # Behaviour
//
// Requests are sent exactly once: probes must not be repeated against a
// third-party service, so there is no retry layer. Redirects are not
// followed unless FollowRedirects is set; a redirect response is returned
// to the caller as-is.
//
// # Security
//
//   - Sensitive query parameters and URL userinfo are redacted from logs
//   - Authorization headers are never logged
//   - TLS 1.2 minimum with certificate validation enabled
//   - DialContext can be replaced to re-validate the dialled address
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: requests that completed with status < 400
//   - Warn level: failed requests (4xx/5xx status, errors)
//   - Fields: method, url (sanitized), status, duration_ms, error
//   - Correlation IDs are propagated as X-Correlation-ID when present
package httpclient
