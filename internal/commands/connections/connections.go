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

package connections

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tombee/appconn/internal/commands/shared"
	"github.com/tombee/appconn/internal/connection"
)

// newRuntime is replaced in tests.
var newRuntime = shared.NewRuntime

// NewCommand creates the connections command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Inspect supported app connections",
	}

	cmd.AddCommand(newListCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List apps whose credentials can be validated",
		Long:  "Display every supported app with the authentication methods it accepts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())

			return writeList(cmd.OutOrStdout(), rt.Connections.ListItems())
		},
	}
}

func writeList(out io.Writer, items []connection.ListItem) error {
	if shared.GetJSON() {
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Connections []connection.ListItem `json:"connections"`
		}{
			JSONResponse: shared.NewJSONResponse("connections list", true),
			Connections:  items,
		})
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "No connections registered.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAPP\tMETHODS")
	for _, item := range items {
		methods := make([]string, len(item.Methods))
		for i, m := range item.Methods {
			methods[i] = string(m)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", item.Name, item.App, strings.Join(methods, ", "))
	}
	return w.Flush()
}
