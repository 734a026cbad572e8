// Copyright 2025 The Noesis Authors. All rights reserved.
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

package command

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noesisdb/noesis/graph"
)

// NewSparqlCmd runs one query against a namespace and prints the W3C JSON
// results.
func NewSparqlCmd() *cobra.Command {
	var nsName string
	cmd := &cobra.Command{
		Use:   "sparql [flags] <query>",
		Short: "Run a one-shot SPARQL query against a namespace.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nsName == "" {
				return graph.Errorf(graph.KindValidation, "--namespace is required")
			}
			query := ""
			if len(args) == 1 && args[0] != "-" {
				query = args[0]
			} else {
				raw, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				query = string(raw)
			}
			if query == "" {
				return graph.Errorf(graph.KindValidation, "empty query")
			}

			e, err := engineFromConfig()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.Query(cmd.Context(), nsName, query)
			if err != nil {
				return err
			}
			if res.Triples != nil {
				fmt.Fprint(cmd.OutOrStdout(), res.NTriples())
				return nil
			}
			b, err := res.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&nsName, "namespace", "n", "", "namespace to query")
	return cmd
}
