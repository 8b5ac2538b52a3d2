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

// Package secrets resolves secret references given on the command line.
//
// A reference names where a secret lives instead of carrying it:
//
//	env:CONVEX_ADMIN_KEY       environment variable
//	${CONVEX_ADMIN_KEY}        environment variable (legacy syntax)
//	keychain:convex-prod       system keychain, service "appconn"
//	file:/run/secrets/convex   file contents, trailing whitespace trimmed
//
// Any other value is returned unchanged as a literal secret. Only schemes
// with a registered provider are treated as references, so admin keys such
// as "tenant:deployment|..." pass through as literals.
package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Provider resolves secrets for one reference scheme.
type Provider interface {
	// Scheme returns the reference prefix handled, without the colon.
	Scheme() string

	// Resolve returns the secret named by key.
	Resolve(ctx context.Context, key string) (string, error)
}

var (
	// legacyEnvVarRegex matches ${VAR_NAME} syntax
	legacyEnvVarRegex = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

	// schemeRegex matches scheme:reference format
	schemeRegex = regexp.MustCompile(`^([a-z][a-z0-9]*):(.*)$`)
)

// Registry routes references to providers by scheme. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// NewDefaultRegistry creates a registry with the env, keychain and file
// providers. Keychain entries are read from keychainService.
func NewDefaultRegistry(keychainService string) *Registry {
	r := NewRegistry()
	_ = r.Register(NewEnvProvider())
	_ = r.Register(NewKeychainProvider(keychainService))
	_ = r.Register(NewFileProvider(FileProviderConfig{}))
	return r
}

// Register adds a provider. Each scheme may be registered once.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	scheme := p.Scheme()
	if _, exists := r.providers[scheme]; exists {
		return fmt.Errorf("provider for scheme %q already registered", scheme)
	}
	r.providers[scheme] = p
	return nil
}

// IsReference reports whether value would be resolved through a provider.
func (r *Registry) IsReference(value string) bool {
	_, _, ok := r.parseReference(value)
	return ok
}

// Resolve returns the secret named by reference, or reference itself when
// it is not a reference.
func (r *Registry) Resolve(ctx context.Context, reference string) (string, error) {
	provider, key, ok := r.parseReference(reference)
	if !ok {
		return reference, nil
	}

	if strings.TrimSpace(key) == "" {
		return "", &ResolutionError{
			Category:  CategoryInvalidSyntax,
			Reference: provider.Scheme() + ":",
			Scheme:    provider.Scheme(),
			Message:   "empty key",
		}
	}

	value, err := provider.Resolve(ctx, key)
	if err != nil {
		return "", err
	}
	return value, nil
}

// parseReference returns the provider and key for reference.
func (r *Registry) parseReference(reference string) (Provider, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if matches := legacyEnvVarRegex.FindStringSubmatch(reference); matches != nil {
		if p, exists := r.providers["env"]; exists {
			return p, matches[1], true
		}
		return nil, "", false
	}

	matches := schemeRegex.FindStringSubmatch(reference)
	if matches == nil {
		return nil, "", false
	}
	p, exists := r.providers[matches[1]]
	if !exists {
		return nil, "", false
	}
	return p, matches[2], true
}
