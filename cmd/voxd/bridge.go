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
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/bridge"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/log"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the DLL Connector and Bridge HTTP+SSE facade only",
	Long: `Run the Bridge Service standalone: the named-pipe DLL Connector plus the
HTTP+SSE surface described in spec §4.2/§6, with no embedded Agent
Orchestrator. Useful for fronting the game DLL for external tool
consumers that don't need a turn-gated agent runner in-process.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.MustFromConfig(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	conn := connector.New(cfg.NamedPipe, logger.Named("connector"))
	br := bridge.New(conn, cfg.Bridge.Pause, logger.Named("bridge"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !conn.Connect(ctx) {
		logger.Warn("initial DLL connect failed, will keep retrying in background")
	}
	br.Start(ctx)
	defer br.Stop()

	addr := net.JoinHostPort(cfg.REST.Host, fmt.Sprintf("%d", cfg.REST.Port))
	srv := &http.Server{
		Addr:    addr,
		Handler: br.Router(cfg.Transport.CORS),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("bridge HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("bridge: http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error during HTTP shutdown", zap.Error(err))
	}
	cancel()
	conn.Disconnect()

	logger.Info("bridge shutdown complete")
	return nil
}
