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

// Package strategist provides the default VoxAgent binding for
// per-player turn execution (spec §4.4 "StrategistParameters"). The
// per-tool prompt text and game-domain Lua scripts that would flesh
// out a specific playstyle are out of scope (spec §1 Non-goals); this
// package supplies the harness any concrete persona plugs into.
package strategist

import (
	"context"
	"fmt"

	"github.com/vox-deorum/voxd/internal/llmprovider"
	"github.com/vox-deorum/voxd/internal/orchestrator"
)

// Option configures an Agent at construction time, mirroring the
// teacher's functional-options agent builder.
type Option func(*Agent)

// WithSystemPrompt overrides the default system prompt template.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithActiveTools fixes the set of MCP tool names available to the
// model for every execution of this agent.
func WithActiveTools(names ...string) Option {
	return func(a *Agent) { a.activeTools = names }
}

// WithMaxSteps overrides the execution loop's step budget.
func WithMaxSteps(n int) Option {
	return func(a *Agent) { a.maxSteps = n }
}

// Agent is the default VoxAgent[StrategistParameters, struct{}, string]
// implementation: a single-persona, tool-using strategist that runs
// once per notified turn and returns its closing assistant message.
type Agent struct {
	name         string
	systemPrompt string
	activeTools  []string
	maxSteps     int
}

// New constructs a strategist Agent named name, playing through
// activeTools by default (spec §4.4's knowledge+action tool surface).
func New(name string, opts ...Option) *Agent {
	a := &Agent{
		name: name,
		systemPrompt: "You are the strategic advisor controlling one civilization in a game of " +
			"Civilization V. Use the available tools to observe the game state and issue orders " +
			"for this turn, then stop once you have nothing further to act on.",
		activeTools: []string{
			"get-players", "get-events", "get-cities", "get-options",
			"get-victory-progress", "get-military-report", "get-opinions",
			"set-strategy", "set-research", "set-policy", "set-city-production",
			"unit-command", "declare-war", "make-peace", "relay-diplomatic-message",
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Name() string { return a.name }

func (a *Agent) GetSystem(ctx context.Context, params orchestrator.StrategistParameters) (string, error) {
	return fmt.Sprintf("%s\n\nYou are playing as player %d in game %s, turn %d.",
		a.systemPrompt, params.PlayerID, params.GameID, params.Turn), nil
}

func (a *Agent) GetActiveTools(ctx context.Context, params orchestrator.StrategistParameters) ([]string, error) {
	return a.activeTools, nil
}

func (a *Agent) GetExtraTools(ctx context.Context, params orchestrator.StrategistParameters) ([]string, error) {
	return nil, nil
}

func (a *Agent) GetInitialMessages(ctx context.Context, params orchestrator.StrategistParameters, input struct{}) ([]llmprovider.Message, error) {
	return nil, nil
}

func (a *Agent) PrepareStep(ctx context.Context, params orchestrator.StrategistParameters, input struct{}, steps []orchestrator.StepInfo, messages []llmprovider.Message) (orchestrator.StepPlan, error) {
	return orchestrator.StepPlan{}, nil
}

func (a *Agent) StopCheck(ctx context.Context, params orchestrator.StrategistParameters, input struct{}, steps []orchestrator.StepInfo) (bool, error) {
	return false, nil
}

func (a *Agent) GetOutput(ctx context.Context, params orchestrator.StrategistParameters, input struct{}, finalText string) (string, error) {
	return finalText, nil
}

func (a *Agent) PostprocessOutput(ctx context.Context, params orchestrator.StrategistParameters, output string) error {
	return nil
}

func (a *Agent) MaxSteps() int {
	return a.maxSteps
}

func (a *Agent) RemoveUsedTools() bool { return false }
func (a *Agent) OnlyLastRound() bool   { return false }
func (a *Agent) FireAndForget() bool   { return false }
