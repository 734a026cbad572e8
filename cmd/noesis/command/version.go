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
	"runtime"

	"github.com/spf13/cobra"
)

// Filled in by `go build -ldflags "-X ...command.Version=<ver>"`.
var (
	Version   = "dev"
	BuildDate string
)

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "noesis %s\n", Version)
			if BuildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built:    %s\n", BuildDate)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "go:       %s\n", runtime.Version())
		},
	}
}
