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

// Package command implements the noesis CLI.
package command

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noesisdb/noesis/clog"
	"github.com/noesisdb/noesis/engine"
	"github.com/noesisdb/noesis/graph"
)

// Configuration keys. All but the quota keys bind to the matching
// environment variable; the quota keys are read from the config file only.
const (
	KeyDataDir      = "data_dir"
	KeyAuthTokens   = "auth_tokens"
	KeyEmbedderURL  = "embedder_url"
	KeyEmbeddingDim = "embedding_dim"
	KeyLogLevel     = "log_level"
	KeyRPCPort      = "rpc_port"
	KeyHTTPPort     = "http_port"
	KeyMaxTriples   = "quota.max_triples"
	KeyMaxVectors   = "quota.max_vectors"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 1
	exitConfig  = 2
	exitRuntime = 3
)

// errConfig marks failures that should exit with the config code.
var errConfig = errors.New("configuration error")

var mcpOnly bool

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := &cobra.Command{
		Use:           "noesis",
		Short:         "noesis is a semantic knowledge-graph engine for agent memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if v, err := strconv.Atoi(viper.GetString(KeyLogLevel)); err == nil {
				clog.SetV(v)
			}
			clog.UseGlog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if mcpOnly {
				return serveMCP(cmd.Context())
			}
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().String("config", "", "explicit configuration file")
	rootCmd.PersistentFlags().String("data-dir", "", "persistence root (empty keeps data in memory)")
	rootCmd.Flags().BoolVar(&mcpOnly, "mcp", false, "serve only the stdio tool transport")

	viper.SetDefault(KeyRPCPort, "7472")
	viper.SetDefault(KeyHTTPPort, "7473")
	bindEnv := map[string]string{
		KeyDataDir:      "DATA_DIR",
		KeyAuthTokens:   "AUTH_TOKENS",
		KeyEmbedderURL:  "EMBEDDER_URL",
		KeyEmbeddingDim: "EMBEDDING_DIM",
		KeyLogLevel:     "LOG_LEVEL",
		KeyRPCPort:      "RPC_PORT",
		KeyHTTPPort:     "HTTP_PORT",
	}
	for key, env := range bindEnv {
		viper.BindEnv(key, env)
	}
	viper.BindPFlag(KeyDataDir, rootCmd.PersistentFlags().Lookup("data-dir"))

	cobra.OnInitialize(func() {
		if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintln(os.Stderr, "noesis: cannot read config:", err)
				os.Exit(exitConfig)
			}
		}
	})

	rootCmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewIngestCmd(),
		NewSparqlCmd(),
		NewCompactCmd(),
		NewVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "noesis:", err)
		switch {
		case errors.Is(err, errConfig):
			return exitConfig
		case graph.IsKind(err, graph.KindValidation):
			return exitUsage
		default:
			return exitRuntime
		}
	}
	return exitOK
}

// engineFromConfig assembles the engine from viper state.
func engineFromConfig() (*engine.Engine, error) {
	scopes, err := graph.ParseAuthTokens(viper.GetString(KeyAuthTokens))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}
	cfg := engine.Config{
		DataDir:      viper.GetString(KeyDataDir),
		MaxTriples:   viper.GetInt(KeyMaxTriples),
		MaxVectors:   viper.GetInt(KeyMaxVectors),
		EmbedderURL:  viper.GetString(KeyEmbedderURL),
		EmbeddingDim: viper.GetInt(KeyEmbeddingDim),
		AuthTokens:   scopes,
	}
	e, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}
	return e, nil
}
