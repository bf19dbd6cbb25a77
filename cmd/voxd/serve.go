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
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/envoy"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/internal/log"
	"github.com/vox-deorum/voxd/internal/session"
	"github.com/vox-deorum/voxd/pkg/mcp/server"
	"github.com/vox-deorum/voxd/pkg/mcp/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full control plane: Connector, Knowledge Store, Orchestrator, and MCP server",
	Long: `Run the complete stack described in spec §2: the named-pipe DLL Connector,
the Knowledge Store and its event-ingestion Pipeline, the Agent Orchestrator,
the StrategistSession lifecycle, and an MCP server exposing every registered
tool to external agent clients over stdio or HTTP (transport.type).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	store := knowledge.NewStore(cfg.Database.DataDir, cfg.Database.MaxMajorCivs,
		autoSaveInterval(cfg.Database.AutoSaveInterval), logger.Named("knowledge"))
	if err := ensureKnowledgeTables(ctx, store); err != nil {
		return fmt.Errorf("voxd: prepare knowledge schema: %w", err)
	}

	pipeline := knowledge.NewPipeline(store, logger.Named("ingest"))
	registerEventSchemas(pipeline)
	go pipeline.Run(ctx, conn.Events(ctx))

	registry := buildToolRegistry(store, conn)

	llmProvider, err := buildLLMProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("voxd: build LLM provider: %w", err)
	}

	mgr := buildManager(registry, llmProvider, logger)
	llmPlayers := llmPlayersFromConfig(cfg.Orchestrator.LLMPlayers)

	sess := session.New(cfg.Session, conn, store, mgr, llmPlayers, logger.Named("session"))
	sess.SetArchiveConfig(cfg.Database.DataDir, cfg.Database.ArchiveDir)
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("voxd: start session: %w", err)
	}

	mcpServer := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version, logger.Named("mcp"),
		server.WithToolProvider(registry))

	shutdownMCP, err := serveMCPTransport(ctx, cfg.Transport, mcpServer, logger.Named("mcp-transport"))
	if err != nil {
		return fmt.Errorf("voxd: start MCP transport: %w", err)
	}

	envoyStore := envoy.NewMemoryStore(nil)
	envoyAddr := net.JoinHostPort(cfg.REST.Host, fmt.Sprintf("%d", cfg.REST.Port))
	envoySrv := &http.Server{Addr: envoyAddr, Handler: envoy.Router(envoyStore)}
	go func() {
		logger.Info("envoy thread HTTP surface listening", zap.String("addr", envoyAddr))
		if err := envoySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("envoy HTTP surface exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	sessionErrCh := make(chan error, 1)
	go func() {
		sessionErrCh <- sess.Wait(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-sessionErrCh:
		if err != nil && !errors.Is(err, session.ErrVictory) {
			logger.Error("session ended unexpectedly", zap.Error(err))
		} else {
			logger.Info("session ended", zap.Error(err))
		}
	}

	// Graceful shutdown order per spec §6: abort the session, drain
	// pending knowledge writes, close the store, stop the MCP
	// transport, then disconnect the DLL connector.
	sess.Abort()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Close(drainCtx); err != nil {
		logger.Warn("error closing knowledge store", zap.Error(err))
	}
	drainCancel()

	if err := shutdownMCP(); err != nil {
		logger.Warn("error stopping MCP transport", zap.Error(err))
	}

	envoyShutdownCtx, envoyShutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := envoySrv.Shutdown(envoyShutdownCtx); err != nil {
		logger.Warn("error stopping envoy HTTP surface", zap.Error(err))
	}
	envoyShutdownCancel()

	cancel()
	conn.Disconnect()

	logger.Info("voxd shutdown complete")
	return nil
}

// serveMCPTransport starts the configured MCP transport in the
// background and returns a function that stops it. stdio mode serves
// directly over os.Stdin/os.Stdout (stdout must never carry log
// output, enforced by internal/log.NewFromConfig writing to stderr);
// http mode hand-rolls a chi JSON-RPC POST handler, since
// pkg/mcp/transport has no server-side HTTP transport (only the
// client-side one used to call out to external MCP servers).
func serveMCPTransport(ctx context.Context, cfg config.TransportConfig, mcpServer *server.MCPServer, logger *zap.Logger) (func() error, error) {
	switch cfg.Type {
	case "", "stdio":
		stdioTransport := transport.NewStdioServerTransport(os.Stdin, os.Stdout)
		go func() {
			if err := mcpServer.Serve(ctx, stdioTransport); err != nil && ctx.Err() == nil {
				logger.Error("stdio MCP transport exited", zap.Error(err))
			}
		}()
		return func() error { return stdioTransport.Close() }, nil

	case "http":
		router := chi.NewRouter()
		router.Use(middleware.RequestID)
		router.Use(middleware.Recoverer)
		router.Post("/mcp", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp, err := mcpServer.HandleMessage(r.Context(), body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if resp == nil {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(resp)
		})

		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
		srv := &http.Server{Addr: addr, Handler: router}
		go func() {
			logger.Info("MCP HTTP transport listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("MCP HTTP transport exited", zap.Error(err))
			}
		}()

		return func() error {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		}, nil

	default:
		return nil, fmt.Errorf("voxd: unknown transport.type %q", cfg.Type)
	}
}
