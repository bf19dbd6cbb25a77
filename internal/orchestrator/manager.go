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
package orchestrator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/llmprovider"
)

// LLMPlayers maps a controlled playerID to the agent name that plays
// it (spec §4.5 "the configured llmPlayers map").
type LLMPlayers map[int]string

// Manager owns the active VoxContext and its VoxPlayers, and
// implements the context-switch behavior spec §4.4 describes: on a
// game-switched signal, abort all active VoxPlayers, clear the map,
// and instantiate new ones for the new gameID.
type Manager struct {
	tools ToolCaller
	llm   llmprovider.Provider
	log   *zap.Logger

	register func(*VoxContext) // wires agents into a freshly created VoxContext

	mu      sync.Mutex
	ctx     *VoxContext
	players map[int]*VoxPlayer
}

// NewManager constructs a Manager. register is invoked on every new
// VoxContext so callers can Bind() their VoxAgents into it.
func NewManager(tools ToolCaller, llm llmprovider.Provider, register func(*VoxContext), logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tools:    tools,
		llm:      llm,
		log:      logger,
		register: register,
		players:  make(map[int]*VoxPlayer),
	}
}

// SwitchGame aborts all current VoxPlayers, builds a fresh VoxContext
// for gameID, and instantiates a VoxPlayer per entry in llmPlayers
// (spec §4.5 "GameSwitched(gameID, turn)").
func (m *Manager) SwitchGame(ctx context.Context, gameID string, llmPlayers LLMPlayers) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.players {
		p.Abort()
	}
	for _, p := range m.players {
		p.Wait()
	}
	m.players = make(map[int]*VoxPlayer)

	m.ctx = NewVoxContext(gameID, m.tools, m.llm, m.log)
	if m.register != nil {
		m.register(m.ctx)
	}

	for playerID, agentName := range llmPlayers {
		m.players[playerID] = NewVoxPlayer(ctx, playerID, agentName, m.ctx, m.log)
	}
}

// AbortAll aborts every active VoxPlayer without starting a new
// context (spec §4.5 "PlayerVictory(...) -> ... abort all players").
func (m *Manager) AbortAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		p.Abort()
	}
	for _, p := range m.players {
		p.Wait()
	}
}

// NotifyTurn routes a PlayerDoneTurn notification to the matching
// VoxPlayer, if one is active (spec §4.5
// "PlayerDoneTurn(playerID, turn, latestID)").
func (m *Manager) NotifyTurn(playerID, turn int, latestEventID int64) {
	m.mu.Lock()
	p, ok := m.players[playerID]
	m.mu.Unlock()
	if !ok {
		return
	}
	p.NotifyTurn(turn, latestEventID)
}

// Context returns the currently active VoxContext, or nil if none has
// been created yet.
func (m *Manager) Context() *VoxContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}
