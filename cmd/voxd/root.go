// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// voxd is the control-plane CLI: it wires the DLL Connector, Bridge
// Service, Knowledge Store, and Agent Orchestrator together (spec §2)
// behind one binary with a subcommand per deployable process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vox-deorum/voxd/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "voxd",
	Short: "vox-deorum control plane for LLM-driven Civilization V agents",
	Long: `voxd runs the four subsystems that let LLM agents play Civilization V:
the DLL Connector, the Bridge Service, the Knowledge Store, and the Agent
Orchestrator.

"voxd serve" runs the full stack in one process. "voxd bridge" runs only
the Connector and Bridge HTTP+SSE facade, for deployments that front
multiple external tool consumers without an embedded orchestrator.`,
}

// Execute runs the root command, exiting non-zero on fatal init
// failure (spec §6 "Exit codes: 0 normal; non-zero for fatal init
// failure").
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./voxd.yaml, /etc/voxd/voxd.yaml, or $HOME/.voxd/voxd.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "override logging.format (json, text)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// loadConfig loads and validates the effective Config for any
// subcommand, applying the --config flag if given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("voxd: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("voxd: invalid config: %w", err)
	}
	return cfg, nil
}
