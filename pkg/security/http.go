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

// Package security guards outbound requests whose destination is derived
// from user-supplied input. A URLGuard refuses URLs whose host is, or
// resolves to, a loopback, private, link-local or otherwise non-public
// address, so that validating a credential cannot be turned into a probe of
// the internal network.
package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// HTTPSecurityConfig defines the destination checks applied by URLGuard.
type HTTPSecurityConfig struct {
	// AllowedSchemes restricts URL schemes (http, https)
	// Default: https only
	AllowedSchemes []string `yaml:"allowed_schemes,omitempty" json:"allowed_schemes,omitempty"`

	// DenyPrivateIPs blocks RFC1918, link-local, loopback and reserved ranges
	DenyPrivateIPs bool `yaml:"deny_private_ips" json:"deny_private_ips"`

	// DenyMetadata blocks cloud metadata endpoints (169.254.169.254)
	DenyMetadata bool `yaml:"deny_metadata" json:"deny_metadata"`

	// MaxLabelLength limits individual DNS label length (DNS limit is 63)
	MaxLabelLength int `yaml:"max_label_length" json:"max_label_length"`

	// MaxSubdomainDepth limits the number of labels in a hostname
	MaxSubdomainDepth int `yaml:"max_subdomain_depth" json:"max_subdomain_depth"`

	// ResolveTimeout bounds DNS resolution when the caller's context has no
	// earlier deadline. Zero means no extra bound.
	ResolveTimeout time.Duration `yaml:"resolve_timeout,omitempty" json:"resolve_timeout,omitempty"`
}

// DefaultHTTPSecurityConfig returns a secure default configuration.
func DefaultHTTPSecurityConfig() *HTTPSecurityConfig {
	return &HTTPSecurityConfig{
		AllowedSchemes:    []string{"https"},
		DenyPrivateIPs:    true,
		DenyMetadata:      true,
		MaxLabelLength:    63,
		MaxSubdomainDepth: 5,
		ResolveTimeout:    5 * time.Second,
	}
}

// Validate checks the configuration for impossible values.
func (c *HTTPSecurityConfig) Validate() error {
	if c.MaxLabelLength < 0 {
		return fmt.Errorf("max_label_length must be >= 0, got %d", c.MaxLabelLength)
	}
	if c.MaxSubdomainDepth < 0 {
		return fmt.Errorf("max_subdomain_depth must be >= 0, got %d", c.MaxSubdomainDepth)
	}
	if c.ResolveTimeout < 0 {
		return fmt.Errorf("resolve_timeout must be >= 0, got %v", c.ResolveTimeout)
	}
	for _, scheme := range c.AllowedSchemes {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("allowed_schemes entries must be http or https, got %q", scheme)
		}
	}
	return nil
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// URLGuard validates outbound destinations against an HTTPSecurityConfig.
// It holds no mutable state and is safe for concurrent use.
type URLGuard struct {
	config   HTTPSecurityConfig
	resolver Resolver
}

// GuardOption configures a URLGuard.
type GuardOption func(*URLGuard)

// WithResolver replaces the DNS resolver (default: net.DefaultResolver).
func WithResolver(r Resolver) GuardOption {
	return func(g *URLGuard) {
		g.resolver = r
	}
}

// NewURLGuard creates a guard. A nil config uses DefaultHTTPSecurityConfig.
func NewURLGuard(cfg *HTTPSecurityConfig, opts ...GuardOption) *URLGuard {
	if cfg == nil {
		cfg = DefaultHTTPSecurityConfig()
	}
	g := &URLGuard{
		config:   *cfg,
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckURL returns nil if rawURL may be contacted, or an *UnsafeAddressError
// describing why it may not. The host is resolved through the guard's
// resolver; a literal IP is checked directly without resolution. Resolution
// failures are reported as unsafe since the destination cannot be proven public.
func (g *URLGuard) CheckURL(ctx context.Context, rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &UnsafeAddressError{URL: rawURL, Reason: "invalid URL", Cause: err}
	}

	if len(g.config.AllowedSchemes) > 0 && !containsFold(g.config.AllowedSchemes, parsedURL.Scheme) {
		return &UnsafeAddressError{
			URL:    rawURL,
			Host:   parsedURL.Hostname(),
			Reason: fmt.Sprintf("URL scheme not allowed: %q (allowed: %v)", parsedURL.Scheme, g.config.AllowedSchemes),
		}
	}

	host := parsedURL.Hostname()
	if host == "" {
		return &UnsafeAddressError{URL: rawURL, Reason: "URL missing host"}
	}

	if parsedURL.User != nil {
		return &UnsafeAddressError{URL: rawURL, Host: host, Reason: "URL must not contain userinfo"}
	}

	if _, err := g.CheckHost(ctx, host); err != nil {
		if unsafe, ok := err.(*UnsafeAddressError); ok {
			unsafe.URL = rawURL
		}
		return err
	}

	return nil
}

// CheckHost validates a bare host (name or literal IP) and returns the
// addresses it is allowed to reach. With neither DenyPrivateIPs nor
// DenyMetadata set, names are not resolved and the result is nil.
func (g *URLGuard) CheckHost(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if err := g.validateIP(ip); err != nil {
			return nil, &UnsafeAddressError{Host: host, IP: ip.String(), Reason: err.Error()}
		}
		return []net.IP{ip}, nil
	}

	if err := g.checkHostname(host); err != nil {
		return nil, &UnsafeAddressError{Host: host, Reason: err.Error()}
	}

	if !g.config.DenyPrivateIPs && !g.config.DenyMetadata {
		return nil, nil
	}

	if g.config.DenyPrivateIPs && isLocalHostname(host) {
		return nil, &UnsafeAddressError{Host: host, Reason: "local hostnames are blocked"}
	}

	return g.resolveAndValidate(ctx, host)
}

// resolveAndValidate resolves host and requires every address to pass validateIP.
func (g *URLGuard) resolveAndValidate(ctx context.Context, host string) ([]net.IP, error) {
	if g.config.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.ResolveTimeout)
		defer cancel()
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, &UnsafeAddressError{Host: host, Reason: "failed to resolve host", Cause: err}
	}

	if len(addrs) == 0 {
		return nil, &UnsafeAddressError{Host: host, Reason: "no IP addresses found for host"}
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if err := g.validateIP(addr.IP); err != nil {
			return nil, &UnsafeAddressError{Host: host, IP: addr.IP.String(), Reason: err.Error()}
		}
		ips = append(ips, addr.IP)
	}

	return ips, nil
}

// validateIP checks if an IP address is allowed.
func (g *URLGuard) validateIP(ip net.IP) error {
	if g.config.DenyMetadata && isMetadataIP(ip) {
		return fmt.Errorf("metadata service IP blocked")
	}

	if g.config.DenyPrivateIPs && isPrivateOrLocalIP(ip) {
		return fmt.Errorf("private/local IP addresses are blocked")
	}

	return nil
}

// isLocalHostname reports names that always point at the local machine.
func isLocalHostname(host string) bool {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	return h == "localhost" || strings.HasSuffix(h, ".localhost")
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
