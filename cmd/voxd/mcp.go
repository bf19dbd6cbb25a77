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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/internal/log"
	"github.com/vox-deorum/voxd/pkg/mcp/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run only the MCP tool server (no Orchestrator, no StrategistSession)",
	Long: `Run the DLL Connector, Knowledge Store, and MCP tool registry with no
Agent Orchestrator or StrategistSession attached. Useful for an external
agent runtime that wants direct tool access (spec §4.4's MCP server
surface) without voxd driving turns itself, mirroring the teacher's split
between its full server and its standalone MCP binary.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.MustFromConfig(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := connector.New(cfg.NamedPipe, logger.Named("connector"))
	if !conn.Connect(ctx) {
		logger.Warn("initial DLL connect failed, will keep retrying in background")
	}
	defer conn.Disconnect()

	store := knowledge.NewStore(cfg.Database.DataDir, cfg.Database.MaxMajorCivs,
		autoSaveInterval(cfg.Database.AutoSaveInterval), logger.Named("knowledge"))
	if err := ensureKnowledgeTables(ctx, store); err != nil {
		return fmt.Errorf("voxd: prepare knowledge schema: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("error closing knowledge store", zap.Error(err))
		}
	}()

	pipeline := knowledge.NewPipeline(store, logger.Named("ingest"))
	registerEventSchemas(pipeline)
	go pipeline.Run(ctx, conn.Events(ctx))

	registry := buildToolRegistry(store, conn)
	mcpServer := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version, logger.Named("mcp"),
		server.WithToolProvider(registry))

	shutdownMCP, err := serveMCPTransport(ctx, cfg.Transport, mcpServer, logger.Named("mcp-transport"))
	if err != nil {
		return fmt.Errorf("voxd: start MCP transport: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	if err := shutdownMCP(); err != nil {
		logger.Warn("error stopping MCP transport", zap.Error(err))
	}
	return nil
}
