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

// Package validate implements 'appconn validate', which checks a set of
// connection credentials against the app they belong to.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/appconn/internal/commands/shared"
	"github.com/tombee/appconn/internal/connection"
	"github.com/tombee/appconn/internal/secrets"
	appconnerrors "github.com/tombee/appconn/pkg/errors"
)

// newRuntime is replaced in tests.
var newRuntime = shared.NewRuntime

// Result is the JSON output of a validation.
type Result struct {
	shared.JSONResponse
	App     connection.App     `json:"app"`
	Method  connection.Method  `json:"method"`
	Outcome connection.Outcome `json:"outcome"`
	Valid   bool               `json:"valid"`
}

type options struct {
	adminKey string
	method   string
}

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "validate <app>",
		Short: "Check connection credentials against the app",
		Long: `Check connection credentials by making one read-only request to the app.

The admin key may be given literally, as a secret reference, or as '-'
to read it from standard input:
  env:NAME        environment variable
  keychain:NAME   system keychain entry (see 'appconn secrets set')
  file:/path      file contents

Keys that do not name a deployment are accepted without a request.

Examples:
  appconn validate convex --admin-key env:CONVEX_ADMIN_KEY
  appconn validate convex --admin-key keychain:convex-prod
  echo "$KEY" | appconn validate convex --admin-key -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, connection.App(args[0]), opts)
		},
	}

	cmd.Flags().StringVar(&opts.adminKey, "admin-key", "", "Admin key, secret reference, or '-' for stdin")
	cmd.Flags().StringVar(&opts.method, "method", string(connection.MethodAdminKey), "Authentication method")

	return cmd
}

func run(cmd *cobra.Command, app connection.App, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(context.Background()); closeErr != nil {
			rt.Logger.Warn("failed to flush telemetry", "error", closeErr)
		}
	}()

	adminKey, err := readAdminKey(ctx, cmd, rt.Secrets, opts.adminKey)
	if err != nil {
		return err
	}

	masker := secrets.NewMasker()
	masker.AddSecret(adminKey)

	result, err := rt.Connections.Validate(ctx, connection.Config{
		App:    app,
		Method: connection.Method(opts.method),
		Credentials: connection.Credentials{
			AdminKey: adminKey,
		},
	})
	if err != nil {
		if shared.GetJSON() {
			if emitErr := emitError(cmd.OutOrStdout(), masker, err); emitErr != nil {
				return emitErr
			}
		}
		// Remote response bodies are embedded verbatim and may echo the key.
		return &maskedError{message: masker.Mask(err.Error()), err: err}
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), Result{
			JSONResponse: shared.NewJSONResponse("validate", true),
			App:          app,
			Method:       connection.Method(opts.method),
			Outcome:      result.Outcome,
			Valid:        true,
		})
	}

	if shared.GetQuiet() {
		return nil
	}

	out := cmd.OutOrStdout()
	switch result.Outcome {
	case connection.OutcomeSkipped:
		fmt.Fprintf(out, "%s credentials accepted without a check: the admin key does not name a deployment\n", app)
	default:
		fmt.Fprintf(out, "%s credentials verified\n", app)
	}
	return nil
}

// readAdminKey resolves the --admin-key value. An empty value prompts on a
// terminal and "-" always reads standard input.
func readAdminKey(ctx context.Context, cmd *cobra.Command, registry *secrets.Registry, value string) (string, error) {
	switch {
	case value == "-", value == "" && !shared.IsNonInteractive():
		key, err := shared.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Admin key (hidden): ")
		if err != nil {
			return "", shared.NewInvalidInputError("failed to read admin key", err)
		}
		value = key
	case registry.IsReference(value):
		key, err := registry.Resolve(ctx, value)
		if err != nil {
			return "", err
		}
		value = key
	}

	if value == "" {
		return "", &appconnerrors.ValidationError{
			Field:   "admin_key",
			Message: "admin key is required",
			Hint:    "Pass --admin-key with a key, a reference such as env:CONVEX_ADMIN_KEY, or '-' to read stdin",
		}
	}
	return value, nil
}

func emitError(w io.Writer, masker *secrets.Masker, err error) error {
	jsonErr := shared.JSONError{
		Code:    appconnerrors.TypeOf(err),
		Message: masker.Mask(err.Error()),
	}
	var suggester appconnerrors.Suggester
	if errors.As(err, &suggester) {
		jsonErr.Suggestion = suggester.Suggestion()
	}
	return shared.EmitJSONError(w, "validate", []shared.JSONError{jsonErr})
}

// maskedError prints a masked message while keeping err's chain for exit
// codes and suggestions.
type maskedError struct {
	message string
	err     error
}

func (e *maskedError) Error() string {
	return e.message
}

func (e *maskedError) Unwrap() error {
	return e.err
}
