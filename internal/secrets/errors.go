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

package secrets

import "fmt"

// Category classifies resolution failures.
type Category string

const (
	// CategoryNotFound means the secret does not exist.
	CategoryNotFound Category = "NOT_FOUND"

	// CategoryAccessDenied means the secret exists but may not be read.
	CategoryAccessDenied Category = "ACCESS_DENIED"

	// CategoryInvalidSyntax means the reference itself is malformed.
	CategoryInvalidSyntax Category = "INVALID_SYNTAX"
)

// ResolutionError reports a failed secret lookup. Its message never
// contains the secret value.
type ResolutionError struct {
	Category  Category
	Reference string
	Scheme    string
	Message   string
	Cause     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("secret %s: %s (%s)", e.Reference, e.Message, e.Category)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *ResolutionError) ErrorType() string {
	return "secret_resolution"
}

// IsRetryable implements errors.ErrorClassifier.
func (e *ResolutionError) IsRetryable() bool {
	return false
}

func newResolutionError(scheme, key string, category Category, message string, cause error) *ResolutionError {
	return &ResolutionError{
		Category:  category,
		Reference: scheme + ":" + key,
		Scheme:    scheme,
		Message:   message,
		Cause:     cause,
	}
}
