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
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveParams are query parameter name fragments that carry secrets.
var sensitiveParams = []string{
	"key",
	"token",
	"password",
	"secret",
	"auth",
	"credential",
}

// sanitizeURL returns u as a string with userinfo removed and sensitive
// query parameter values replaced, for logging.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	safe.User = nil

	if safe.RawQuery != "" {
		q := safe.Query()
		for param := range q {
			if isSensitiveParam(param) {
				q.Set(param, redacted)
			}
		}
		safe.RawQuery = q.Encode()
	}

	return safe.String()
}

// isSensitiveParam reports whether a parameter name looks secret-bearing.
// Comparison is case-insensitive so "API_KEY" and "adminKey" both match.
func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
