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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noesisdb/noesis/graph"
)

// NewCompactCmd rewrites the append-only logs of on-disk namespaces,
// dropping tombstoned rows.
func NewCompactCmd() *cobra.Command {
	var nsName string
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Compact the append-only logs of one or all namespaces.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir := viper.GetString(KeyDataDir)
			if dataDir == "" {
				return fmt.Errorf("%w: compact requires a data dir", errConfig)
			}
			e, err := engineFromConfig()
			if err != nil {
				return err
			}
			defer e.Close()

			names := []string{nsName}
			if nsName == "" {
				entries, err := os.ReadDir(filepath.Join(dataDir, "namespaces"))
				if err != nil {
					return err
				}
				names = names[:0]
				for _, ent := range entries {
					if ent.IsDir() {
						names = append(names, ent.Name())
					}
				}
			}
			for _, name := range names {
				if err := e.Compact(cmd.Context(), name); err != nil {
					if graph.IsKind(err, graph.KindNotFound) {
						continue
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "compacted %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&nsName, "namespace", "n", "", "compact only this namespace")
	return cmd
}
