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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/appconn/internal/secrets"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
	"github.com/tombee/appconn/pkg/security"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitValidationFailed = 1
	ExitUnsafeAddress    = 2
	ExitInvalidInput     = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewInvalidInputError creates an error for malformed input or configuration
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCodeFor returns the exit code err should produce.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var unsafe *security.UnsafeAddressError
	var validation *appconnerrors.ValidationError
	var notFound *appconnerrors.NotFoundError
	var cfgErr *appconnerrors.ConfigError
	var secretErr *secrets.ResolutionError

	switch {
	case errors.As(err, &unsafe):
		return ExitUnsafeAddress
	case errors.As(err, &validation), errors.As(err, &notFound),
		errors.As(err, &cfgErr), errors.As(err, &secretErr):
		return ExitInvalidInput
	default:
		return ExitValidationFailed
	}
}

// HandleExitError prints err and exits with its exit code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(ReportError(os.Stderr, err))
}

// ReportError writes err, and a suggestion when it has one, to w and
// returns the exit code for it.
func ReportError(w io.Writer, err error) int {
	fmt.Fprintln(w, "Error:", err.Error())
	printUserVisibleSuggestion(w, err)
	return ExitCodeFor(err)
}

// printUserVisibleSuggestion prints the suggestion of the first
// UserVisibleError in err's chain.
func printUserVisibleSuggestion(w io.Writer, err error) {
	var userErr appconnerrors.UserVisibleError
	if !errors.As(err, &userErr) || !userErr.IsUserVisible() {
		return
	}

	var suggester appconnerrors.Suggester
	if errors.As(err, &suggester) {
		if suggestion := suggester.Suggestion(); suggestion != "" {
			fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
		}
	}
}
