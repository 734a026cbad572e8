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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/server/http"
	"github.com/noesisdb/noesis/server/mcp"
	"github.com/noesisdb/noesis/server/rpc"
)

// NewServeCmd starts every transport over one shared engine.
func NewServeCmd() *cobra.Command {
	var withMCP bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RPC and HTTP transports (and optionally stdio).",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := engineFromConfig()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return rpc.Serve(ctx, e, ":"+viper.GetString(KeyRPCPort))
			})
			g.Go(func() error {
				return http.Serve(ctx, e, ":"+viper.GetString(KeyHTTPPort))
			})
			if withMCP {
				g.Go(func() error {
					return mcp.NewServer(e, os.Stdin, os.Stdout).Serve(ctx)
				})
			}
			err = g.Wait()
			if ctx.Err() != nil {
				clog.Infof("serve: shutting down")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&withMCP, "stdio", false, "additionally serve the stdio tool transport")
	return cmd
}

// NewMCPCmd serves only the stdio tool transport, for embedding in agent
// hosts.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve only the line-delimited tool transport on stdio.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveMCP(cmd.Context())
		},
	}
}

func serveMCP(ctx context.Context) error {
	e, err := engineFromConfig()
	if err != nil {
		return err
	}
	defer e.Close()
	return mcp.NewServer(e, os.Stdin, os.Stdout).Serve(ctx)
}
