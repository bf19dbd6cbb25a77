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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/llmprovider"
	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

// ErrUnknownAgent is returned by Execute when no agent is registered
// under the requested name.
var ErrUnknownAgent = errors.New("orchestrator: unknown agent")

// ExecFunc runs a single registered VoxAgent's execution loop against
// the given raw input, returning its raw output (spec §4.4
// "context.execute(agentName, params, input)"). AgentRegistry binds
// this over a concretely-typed VoxAgent so the context itself stays
// generic-free, matching how Go agent registries index heterogeneous
// handlers by name.
type ExecFunc func(ctx context.Context, params any, input any) (any, error)

// VoxContext is the per-game runtime shared by every VoxPlayer: it
// connects to the MCP tool surface, caches the tool list, and holds
// the agent registry plus cumulative token counters (spec §4.4
// "VoxContext<Params>").
type VoxContext struct {
	gameID string
	tools  ToolCaller
	llm    llmprovider.Provider
	log    *zap.Logger

	mu        sync.RWMutex
	agents    map[string]ExecFunc
	toolCache []protocol.Tool

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewVoxContext constructs a VoxContext for gameID, bound to tools for
// MCP tool discovery/invocation and llm for model completions.
func NewVoxContext(gameID string, tools ToolCaller, llm llmprovider.Provider, logger *zap.Logger) *VoxContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoxContext{
		gameID: gameID,
		tools:  tools,
		llm:    llm,
		log:    logger,
		agents: make(map[string]ExecFunc),
	}
}

// GameID returns the gameID this context was constructed for.
func (c *VoxContext) GameID() string { return c.gameID }

// RegisterAgent binds name to an ExecFunc. Bind (execute.go) calls it
// with an ExecFunc wrapping a typed VoxAgent.
func (c *VoxContext) RegisterAgent(name string, fn ExecFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[name] = fn
}

// Execute runs the named agent's execution loop (spec §4.4
// "context.execute(agentName, params, input)").
func (c *VoxContext) Execute(ctx context.Context, agentName string, params, input any) (any, error) {
	c.mu.RLock()
	fn, ok := c.agents[agentName]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentName)
	}
	return fn(ctx, params, input)
}

// Tools returns the cached MCP tool list, populating the cache on
// first call (spec §4.4 "caches the MCP tool list").
func (c *VoxContext) Tools(ctx context.Context) ([]protocol.Tool, error) {
	c.mu.RLock()
	cached := c.toolCache
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	tools, err := c.tools.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.toolCache = tools
	c.mu.Unlock()
	return tools, nil
}

// InvalidateToolCache forces the next Tools call to re-fetch the list.
func (c *VoxContext) InvalidateToolCache() {
	c.mu.Lock()
	c.toolCache = nil
	c.mu.Unlock()
}

// AccumulateUsage adds to the context's cumulative token counters
// (spec §4.4 "tracks cumulative token counts").
func (c *VoxContext) AccumulateUsage(usage llmprovider.Usage) {
	c.inputTokens.Add(int64(usage.InputTokens))
	c.outputTokens.Add(int64(usage.OutputTokens))
}

// TokenUsage returns the cumulative (input, output) token counts.
func (c *VoxContext) TokenUsage() (input, output int64) {
	return c.inputTokens.Load(), c.outputTokens.Load()
}
