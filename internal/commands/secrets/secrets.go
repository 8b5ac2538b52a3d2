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

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/appconn/internal/commands/shared"
)

// newRuntime is replaced in tests.
var newRuntime = shared.NewRuntime

// NewCommand creates the secrets command for keychain-backed credentials.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store connection credentials in the system keychain",
		Long: `Store connection credentials in the system keychain so they can be
passed to 'appconn validate' as keychain:<name> references.

Examples:
  appconn secrets set convex-prod
  echo "$KEY" | appconn secrets set convex-prod`,
	}

	cmd.AddCommand(newSetCommand())

	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret in the keychain",
		Long: `Store a secret in the system keychain.

The value is read with a hidden prompt, or from standard input when it is
not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: runSet,
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := validateSecretName(name); err != nil {
		return shared.NewInvalidInputError("invalid secret name", err)
	}

	value, err := shared.ReadSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Enter secret value (hidden): ")
	if err != nil {
		return shared.NewInvalidInputError("failed to read secret value", err)
	}
	if value == "" {
		return shared.NewInvalidInputError("secret value cannot be empty", nil)
	}

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close(cmd.Context())

	if err := rt.Keychain.Store(name, value); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Reference string `json:"reference"`
		}{
			JSONResponse: shared.NewJSONResponse("secrets set", true),
			Reference:    "keychain:" + name,
		})
	}

	if !shared.GetQuiet() {
		fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %q. Reference it as keychain:%s\n", name, name)
	}
	return nil
}

// validateSecretName rejects names that could not be used in a reference.
func validateSecretName(name string) error {
	if name == "" {
		return errors.New("secret name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n") {
		return errors.New("secret name cannot contain whitespace")
	}
	return nil
}
