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

// Package convex validates Convex deployment admin keys.
//
// An admin key embeds the name of the deployment it belongs to, in front of
// the first '|'. The name decides which https://<name>.convex.cloud endpoint
// is probed. Keys that do not carry a usable name are accepted without a
// network check.
package convex

import (
	"regexp"
	"strings"
)

var deploymentNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ExtractDeploymentName returns the deployment name embedded in adminKey.
//
// The name is the part before the first '|'. When that part holds
// ':'-separated segments the last non-empty one is used, so
// "tenant:dev-my-deploy-123|..." yields "dev-my-deploy-123". The result must
// consist of lowercase letters, digits and hyphens; anything else reports
// false. It never fails.
func ExtractDeploymentName(adminKey string) (string, bool) {
	segment, _, found := strings.Cut(adminKey, "|")
	if !found || segment == "" {
		return "", false
	}

	candidate := segment
	if strings.Contains(segment, ":") {
		candidate = ""
		for _, part := range strings.Split(segment, ":") {
			if part != "" {
				candidate = part
			}
		}
	}

	if candidate == "" || !deploymentNamePattern.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}
