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

// Package session ties the DLL Connector, Bridge, Knowledge Store, and
// Agent Orchestrator together into one StrategistSession lifecycle
// (spec §4.5): launching the game process, wiring connector
// notifications to orchestrator signals, and recovering from crashes.
package session

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/internal/orchestrator"
)

// ErrVictory is recorded as the session's terminal result when a
// PlayerVictory notification resolves the game (spec §4.5
// "PlayerVictory(...) -> ... resolve the session's terminal promise").
var ErrVictory = errors.New("session: game ended in victory")

// Notifications is the set of game-event names StrategistSession
// reacts to (spec §4.5 "Installs notification handlers").
const (
	eventPlayerDoneTurn = "PlayerDoneTurn"
	eventGameSwitched   = "GameSwitched"
	eventPlayerVictory  = "PlayerVictory"
	eventDLLConnected   = "DLLConnected"
)

// StrategistSession is the top-level process lifecycle described in
// spec §4.5.
type StrategistSession struct {
	cfg    config.SessionConfig
	conn   *connector.Connector
	store  *knowledge.Store
	mgr    *orchestrator.Manager
	llmMap orchestrator.LLMPlayers
	log    *zap.Logger

	mu        sync.Mutex
	victory   bool
	aborted   bool
	done      chan struct{}
	doneOnce  sync.Once
	terminal  error
	gameProc  *exec.Cmd
	restarted int

	dataDir    string
	archiveDir string
}

// SetArchiveConfig enables best-effort archiving (spec §6
// "database.archive_dir") of a game's SQLite file to archiveDir
// whenever a GameSwitched notification moves the store off that
// gameID. Leaving archiveDir empty (the default) disables archiving.
func (s *StrategistSession) SetArchiveConfig(dataDir, archiveDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataDir = dataDir
	s.archiveDir = archiveDir
}

// New constructs a StrategistSession. llmPlayers is the static
// playerID -> agent-name map applied on every GameSwitched
// notification (spec §4.5 step 3).
func New(cfg config.SessionConfig, conn *connector.Connector, store *knowledge.Store, mgr *orchestrator.Manager, llmPlayers orchestrator.LLMPlayers, logger *zap.Logger) *StrategistSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategistSession{
		cfg:    cfg,
		conn:   conn,
		store:  store,
		mgr:    mgr,
		llmMap: llmPlayers,
		log:    logger,
		done:   make(chan struct{}),
	}
}

// Start optionally launches the game process, connects the connector,
// and begins dispatching notifications until ctx is cancelled or the
// session resolves (spec §4.5 steps 1-3).
func (s *StrategistSession) Start(ctx context.Context) error {
	if s.cfg.LaunchScript != "" {
		if err := s.launchGame(ctx); err != nil {
			return fmt.Errorf("session: launch game: %w", err)
		}
	}

	if !s.conn.Connect(ctx) {
		return fmt.Errorf("session: failed to connect to DLL")
	}

	events := s.conn.Events(ctx)
	lifecycle := s.conn.Lifecycle(ctx)

	go s.dispatchEvents(ctx, events)
	go s.dispatchLifecycle(ctx, lifecycle)

	if s.cfg.LaunchScript != "" {
		go s.watchProcess(ctx)
	}

	return nil
}

// Wait blocks until the session resolves (victory, abort, or ctx
// cancellation) and returns the terminal error, if any.
func (s *StrategistSession) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.terminal
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort marks the session as deliberately ended, preventing crash
// recovery from restarting the game process.
func (s *StrategistSession) Abort() {
	s.mu.Lock()
	s.aborted = true
	s.mu.Unlock()
	s.mgr.AbortAll()
	s.resolve(nil)
}

func (s *StrategistSession) resolve(err error) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.terminal = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *StrategistSession) launchGame(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.LaunchScript)
	if err := cmd.Start(); err != nil {
		return err
	}
	s.mu.Lock()
	s.gameProc = cmd
	s.mu.Unlock()
	s.log.Info("launched game process", zap.String("script", s.cfg.LaunchScript), zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (s *StrategistSession) watchProcess(ctx context.Context) {
	s.mu.Lock()
	cmd := s.gameProc
	s.mu.Unlock()
	if cmd == nil {
		return
	}

	err := cmd.Wait()
	s.log.Warn("game process exited", zap.Error(err))

	s.mu.Lock()
	aborted := s.aborted
	victory := s.victory
	s.mu.Unlock()
	if aborted || victory {
		return
	}

	s.attemptRecovery(ctx)
}

// attemptRecovery restarts the game process after an unexpected exit,
// up to MaxRecoveryAttempts, backing off RecoveryBackoffSec between
// tries (spec §4.5 "Optional crash recovery").
func (s *StrategistSession) attemptRecovery(ctx context.Context) {
	s.mu.Lock()
	s.restarted++
	attempt := s.restarted
	s.mu.Unlock()

	if attempt > s.cfg.MaxRecoveryAttempts {
		s.log.Error("exceeded max crash-recovery attempts", zap.Int("attempts", attempt))
		s.resolve(fmt.Errorf("session: exceeded %d recovery attempts", s.cfg.MaxRecoveryAttempts))
		return
	}

	backoff := time.Duration(s.cfg.RecoveryBackoffSec) * time.Second
	s.log.Warn("attempting crash recovery", zap.Int("attempt", attempt), zap.Duration("backoff", backoff))

	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return
	}

	if err := s.launchGame(ctx); err != nil {
		s.log.Error("recovery relaunch failed", zap.Error(err))
		s.attemptRecovery(ctx)
		return
	}
	go s.watchProcess(ctx)
}
