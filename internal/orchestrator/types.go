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

// Package orchestrator implements the Agent Orchestrator / VoxContext
// (spec §4.4): a per-game runtime that drives VoxAgent executions
// under strict turn gating, wrapping MCP tools with auto-complete
// parameter injection.
package orchestrator

import (
	"context"

	"github.com/vox-deorum/voxd/internal/llmprovider"
	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

// AgentParameters is the base parameter bag threaded through a single
// VoxAgent execution (spec §4.4 "AgentParameters").
type AgentParameters struct {
	PlayerID int
	GameID   string
	Turn     int
	Running  string // name of the agent currently executing for this player, "" if idle
}

// StrategistParameters extends AgentParameters with the event-id
// window and free-form metadata a strategist agent consumes (spec
// §4.4 "StrategistParameters").
type StrategistParameters struct {
	AgentParameters
	After      int64
	Before     int64
	Metadata   map[string]any
	GameStates map[string]any
}

// StepInfo describes one completed round of the execution loop,
// passed to PrepareStep/StopCheck so agents can inspect history.
type StepInfo struct {
	Index      int
	Completion *llmprovider.Completion
}

// VoxAgent is the abstract unit of agent behavior (spec §4.4 "Core
// types"). Params is typically AgentParameters or StrategistParameters;
// In/Out are agent-specific input/output payloads.
type VoxAgent[Params, In, Out any] interface {
	// Name identifies the agent for registry lookup and logging.
	Name() string

	// GetSystem returns the system prompt for this execution.
	GetSystem(ctx context.Context, params Params) (string, error)

	// GetActiveTools returns the tool names available to the model
	// for this execution, drawn from VoxContext's cached tool list.
	GetActiveTools(ctx context.Context, params Params) ([]string, error)

	// GetExtraTools returns additional tools (e.g. other VoxAgents
	// wrapped as callable tools) beyond GetActiveTools' selection.
	GetExtraTools(ctx context.Context, params Params) ([]string, error)

	// GetInitialMessages seeds the conversation beyond the system
	// prompt.
	GetInitialMessages(ctx context.Context, params Params, input In) ([]llmprovider.Message, error)

	// PrepareStep runs before each model round; it may trim the
	// active-tool set or replace the messages by returning a
	// StepPlan. A StepPlan.Model value is not applied (see StepPlan).
	PrepareStep(ctx context.Context, params Params, input In, steps []StepInfo, messages []llmprovider.Message) (StepPlan, error)

	// StopCheck reports whether the execution loop should end after
	// the given step.
	StopCheck(ctx context.Context, params Params, input In, steps []StepInfo) (bool, error)

	// GetOutput extracts the agent's typed result from the final
	// assistant message.
	GetOutput(ctx context.Context, params Params, input In, finalText string) (Out, error)

	// PostprocessOutput runs side effects after GetOutput (e.g.
	// persisting to the knowledge store).
	PostprocessOutput(ctx context.Context, params Params, output Out) error

	// MaxSteps bounds the execution loop; agents may return 0 to
	// accept the orchestrator's default (spec §4.4 "Fallback stop:
	// >=10 steps (agent-configurable)").
	MaxSteps() int

	// RemoveUsedTools, when true, drops a tool from the active set
	// once it has been called (spec §4.4 "Tool wrapping" flags).
	RemoveUsedTools() bool

	// OnlyLastRound, when true, compresses the message history to
	// just the most recent round before each step.
	OnlyLastRound() bool

	// FireAndForget marks an agent invoked via another agent's tool
	// wrapping as not awaited by the caller.
	FireAndForget() bool
}

// StepPlan is PrepareStep's return value: the adjustments to apply
// before the next model round.
type StepPlan struct {
	ActiveTools []string             // nil = leave unchanged
	Messages    []llmprovider.Message // nil = leave unchanged
	Model       string               // ignored: every round uses the provider's configured model
}

// ToolCaller abstracts invoking a named MCP tool, implemented by
// internal/orchestrator/mcptools.Registry.
type ToolCaller interface {
	ListTools(ctx context.Context) ([]protocol.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallToolResult, error)
}
