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

	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/graph"
	"github.com/noesisdb/noesis/internal/ntriples"
)

// NewIngestCmd batch-loads a Turtle/N-Triples file into a namespace.
func NewIngestCmd() *cobra.Command {
	var nsName string
	var batch int
	cmd := &cobra.Command{
		Use:   "ingest [flags] <file>",
		Short: "Batch-load a TTL or N-Triples file into a namespace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nsName == "" {
				return graph.Errorf(graph.KindValidation, "--namespace is required")
			}
			var in io.Reader
			if args[0] == "-" {
				in = os.Stdin
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			e, err := engineFromConfig()
			if err != nil {
				return err
			}
			defer e.Close()

			reader := ntriples.NewReader(in)
			var specs []engine.TripleSpec
			total := engine.IngestStats{}
			flush := func() error {
				if len(specs) == 0 {
					return nil
				}
				stats, err := e.IngestTriples(cmd.Context(), nsName, specs, engine.IngestOptions{Source: args[0]})
				if err != nil {
					return err
				}
				total.NodesAdded += stats.NodesAdded
				total.EdgesAdded += stats.EdgesAdded
				specs = specs[:0]
				return nil
			}
			for {
				t, err := reader.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return graph.Wrap(graph.KindValidation, err, args[0])
				}
				specs = append(specs, engine.TripleSpec{
					Subject:   t.Subject.String(),
					Predicate: t.Predicate.String(),
					Object:    t.Object.String(),
				})
				if len(specs) >= batch {
					if err := flush(); err != nil {
						return err
					}
				}
			}
			if err := flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d triple(s), %d new node(s) into %s\n",
				total.EdgesAdded, total.NodesAdded, nsName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&nsName, "namespace", "n", "", "target namespace")
	cmd.Flags().IntVar(&batch, "batch", 10000, "triples per write batch")
	return cmd
}
