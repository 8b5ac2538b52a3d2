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

// Package errors defines the typed errors surfaced by appconn.
//
// Callers branch on error kind with errors.As rather than on message text:
//
//	var badReq *errors.BadRequestError
//	if errors.As(err, &badReq) {
//	    // the credentials were rejected or could not be verified
//	}
package errors

import "fmt"

// BadRequestError reports that caller-supplied input could not be accepted.
// Credential validation failures are always returned as this type.
type BadRequestError struct {
	// Message is shown to the caller as-is
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// NewBadRequest creates a BadRequestError with the given message.
func NewBadRequest(message string) *BadRequestError {
	return &BadRequestError{Message: message}
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func (e *BadRequestError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *BadRequestError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *BadRequestError) UserMessage() string {
	return e.Message
}

// Suggestion implements Suggester.
func (e *BadRequestError) Suggestion() string {
	return "Check that the credentials are correct and have not been revoked"
}

// ErrorType implements ErrorClassifier.
func (e *BadRequestError) ErrorType() string {
	return "bad_request"
}

// IsRetryable implements ErrorClassifier.
func (e *BadRequestError) IsRetryable() bool {
	return false
}

// ValidationError represents malformed user input caught before any
// network activity, such as an empty admin key or an unsupported method.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Hint provides actionable guidance for fixing the error
	Hint string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool {
	return true
}

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string {
	return e.Message
}

// Suggestion implements Suggester.
func (e *ValidationError) Suggestion() string {
	return e.Hint
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string {
	return "validation"
}

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool {
	return false
}

// NotFoundError indicates a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "app", "secret")
	Resource string

	// ID is the identifier that was not found
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string {
	return "not_found"
}

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool {
	return false
}

// ConfigError represents configuration problems.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "http.timeout")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s", e.Key)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string {
	return "config"
}

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool {
	return false
}
