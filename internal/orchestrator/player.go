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
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/orchestrator/mcptools"
)

// pendingTurn is the latest unconsumed turn notification for one
// player (spec §4.4 "only the newest turn is ever pending").
type pendingTurn struct {
	turn     int
	latestID int64
}

// VoxPlayer runs the turn-gated execution loop for one controlled
// player (spec §4.4 "Turn gating (VoxPlayer)").
type VoxPlayer struct {
	playerID  int
	agentName string
	context   *VoxContext
	log       *zap.Logger

	mu      sync.Mutex
	pending *pendingTurn
	running bool
	cond    *sync.Cond

	cancel context.CancelFunc
	done   chan struct{}

	params AgentParameters
}

// NewVoxPlayer constructs a VoxPlayer bound to agentName, driven by
// ctx's parent context (spec §4.5 "create fresh VoxPlayers per the
// configured llmPlayers map").
func NewVoxPlayer(ctx context.Context, playerID int, agentName string, voxCtx *VoxContext, logger *zap.Logger) *VoxPlayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p := &VoxPlayer{
		playerID:  playerID,
		agentName: agentName,
		context:   voxCtx,
		log:       logger,
		cancel:    cancel,
		done:      make(chan struct{}),
		params:    AgentParameters{PlayerID: playerID, GameID: voxCtx.GameID()},
	}
	p.cond = sync.NewCond(&p.mu)

	go p.loop(loopCtx)
	return p
}

// NotifyTurn records a new turn for this player (spec §4.4
// "notifyTurn(turn, latestEventID)"). Per the gating invariants: a
// notification for the turn currently running is dropped; a pending
// turn is only ever superseded by a newer one, never regressed by a
// stray out-of-order notification (spec §5 "Ordering guarantees").
func (p *VoxPlayer) NotifyTurn(turn int, latestEventID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running && p.params.Turn == turn {
		return
	}
	if p.pending != nil && turn < p.pending.turn {
		return
	}
	p.pending = &pendingTurn{turn: turn, latestID: latestEventID}
	p.cond.Broadcast()
}

// Abort causes the loop to exit after the current execution completes
// and cancels any in-flight LLM call (spec §4.4 "abort()").
func (p *VoxPlayer) Abort() {
	p.cancel()
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Wait blocks until the loop goroutine has exited.
func (p *VoxPlayer) Wait() {
	<-p.done
}

func (p *VoxPlayer) loop(ctx context.Context) {
	defer close(p.done)

	for {
		p.mu.Lock()
		for p.pending == nil && ctx.Err() == nil {
			p.cond.Wait()
		}
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		turn := p.pending
		p.pending = nil
		p.running = true
		p.params.Turn = turn.turn
		p.params.Running = p.agentName
		p.mu.Unlock()

		p.runTurn(ctx, turn)

		p.mu.Lock()
		p.running = false
		p.params.Running = ""
		p.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
	}
}

// runTurn executes exactly the pseudocode body of spec §4.4's
// execute() loop: pause, run the agent, resume, unconditionally (the
// finally block runs even if the agent execution errors).
func (p *VoxPlayer) runTurn(ctx context.Context, turn *pendingTurn) {
	sparams := StrategistParameters{
		AgentParameters: p.params,
		Before:          turn.latestID,
	}

	ctx = mcptools.WithContextValues(ctx, mcptools.ContextValues{
		"PlayerID": p.playerID,
		"GameID":   p.context.GameID(),
		"Turn":     turn.turn,
	})

	if _, err := p.context.tools.CallTool(ctx, "pause-game", map[string]any{"PlayerID": p.playerID}); err != nil {
		p.log.Warn("pause-game failed", zap.Int("playerID", p.playerID), zap.Error(err))
	}

	_, execErr := p.context.Execute(ctx, p.agentName, sparams, struct{}{})
	if execErr != nil {
		p.log.Warn("agent execution failed", zap.String("agent", p.agentName), zap.Int("playerID", p.playerID), zap.Error(execErr))
	}

	sparams.After = turn.latestID
	if _, err := p.context.tools.CallTool(ctx, "resume-game", map[string]any{"PlayerID": p.playerID}); err != nil {
		p.log.Warn("resume-game failed", zap.Int("playerID", p.playerID), zap.Error(err))
	}
}

// String implements fmt.Stringer for logging.
func (p *VoxPlayer) String() string {
	return fmt.Sprintf("VoxPlayer{playerID=%d agent=%s}", p.playerID, p.agentName)
}
