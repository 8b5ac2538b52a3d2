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
)

// DeploymentDomain is the parent domain of all cloud deployments.
const DeploymentDomain = "convex.cloud"

// AddressGuard rejects URLs that point at local or private networks.
// *security.URLGuard implements it.
type AddressGuard interface {
	CheckURL(ctx context.Context, rawURL string) error
}

// DeploymentURL returns the base URL of the named deployment.
func DeploymentURL(name string) string {
	return "https://" + name + "." + DeploymentDomain
}

// ResolveDeploymentURL derives the deployment URL from adminKey and checks
// it with guard. It reports false, without touching the network, when the
// key carries no deployment name. Guard errors are returned unchanged.
func ResolveDeploymentURL(ctx context.Context, guard AddressGuard, adminKey string) (string, bool, error) {
	name, ok := ExtractDeploymentName(adminKey)
	if !ok {
		return "", false, nil
	}

	deploymentURL := DeploymentURL(name)
	if err := guard.CheckURL(ctx, deploymentURL); err != nil {
		return "", false, err
	}

	return deploymentURL, true, nil
}
