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

package security

import (
	"fmt"
	"strings"
)

// checkHostname applies the label length and depth limits before any
// resolution happens.
func (g *URLGuard) checkHostname(hostname string) error {
	labels := splitLabels(hostname)

	if g.config.MaxSubdomainDepth > 0 && len(labels) > g.config.MaxSubdomainDepth {
		return fmt.Errorf("subdomain depth (%d) exceeds maximum (%d)",
			len(labels), g.config.MaxSubdomainDepth)
	}

	if g.config.MaxLabelLength > 0 {
		for _, label := range labels {
			if len(label) > g.config.MaxLabelLength {
				return fmt.Errorf("DNS label length (%d) exceeds maximum (%d)",
					len(label), g.config.MaxLabelLength)
			}
		}
	}

	return nil
}

// splitLabels returns the non-empty dot-separated labels of hostname.
func splitLabels(hostname string) []string {
	parts := strings.Split(hostname, ".")
	labels := parts[:0]
	for _, label := range parts {
		if label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}
