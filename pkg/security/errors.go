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

import "fmt"

// UnsafeAddressError is returned when a destination is, or may be, local
// or private. Callers must not contact the destination.
type UnsafeAddressError struct {
	// URL is the URL that was checked, if the check started from a URL
	URL string

	// Host is the hostname or literal address
	Host string

	// IP is the offending address, when one was resolved
	IP string

	// Reason explains which rule rejected the destination
	Reason string

	// Cause is the underlying error (e.g. a DNS failure)
	Cause error
}

func (e *UnsafeAddressError) Error() string {
	target := e.Host
	if target == "" {
		target = e.URL
	}

	msg := fmt.Sprintf("blocked request to %s: %s", target, e.Reason)
	if e.IP != "" && e.IP != e.Host {
		msg = fmt.Sprintf("%s (resolved to %s)", msg, e.IP)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *UnsafeAddressError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *UnsafeAddressError) ErrorType() string {
	return "unsafe_address"
}

// IsRetryable implements errors.ErrorClassifier.
func (e *UnsafeAddressError) IsRetryable() bool {
	return false
}
