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
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/appconn/pkg/security"
)

type fakeGuard struct {
	err   error
	calls []string
}

func (g *fakeGuard) CheckURL(_ context.Context, rawURL string) error {
	g.calls = append(g.calls, rawURL)
	return g.err
}

func TestDeploymentURL(t *testing.T) {
	assert.Equal(t, "https://acme-prod-42.convex.cloud", DeploymentURL("acme-prod-42"))
}

func TestResolveDeploymentURL(t *testing.T) {
	guard := &fakeGuard{}

	got, ok, err := ResolveDeploymentURL(context.Background(), guard, "acme-prod-42|secret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://acme-prod-42.convex.cloud", got)
	assert.Equal(t, []string{"https://acme-prod-42.convex.cloud"}, guard.calls)
}

func TestResolveDeploymentURL_NoNameSkipsGuard(t *testing.T) {
	guard := &fakeGuard{err: errors.New("must not be called")}

	got, ok, err := ResolveDeploymentURL(context.Background(), guard, "no-separator")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Empty(t, guard.calls)
}

func TestResolveDeploymentURL_GuardErrorUnchanged(t *testing.T) {
	unsafe := &security.UnsafeAddressError{
		URL:    "https://internal.convex.cloud",
		Host:   "internal.convex.cloud",
		IP:     "10.0.0.5",
		Reason: "private IP address",
	}
	guard := &fakeGuard{err: unsafe}

	got, ok, err := ResolveDeploymentURL(context.Background(), guard, "internal|secret")
	assert.Same(t, unsafe, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestResolveDeploymentURL_WithURLGuard(t *testing.T) {
	guard := security.NewURLGuard(security.DefaultHTTPSecurityConfig(), security.WithResolver(staticResolver{
		"public.convex.cloud":   {"52.1.2.3"},
		"loopback.convex.cloud": {"127.0.0.1"},
	}))

	_, ok, err := ResolveDeploymentURL(context.Background(), guard, "public|secret")
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = ResolveDeploymentURL(context.Background(), guard, "loopback|secret")
	var unsafe *security.UnsafeAddressError
	require.ErrorAs(t, err, &unsafe)
	assert.Equal(t, "loopback.convex.cloud", unsafe.Host)
}

// staticResolver answers lookups from a fixed table.
type staticResolver map[string][]string

func (r staticResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	var addrs []net.IPAddr
	for _, s := range r[host] {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(s)})
	}
	return addrs, nil
}
