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
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/llmprovider"
	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

const defaultMaxSteps = 10

// Bind wraps a concretely-typed VoxAgent into an ExecFunc runnable
// through VoxContext.Execute, and registers it. This is the one place
// that crosses from the generic VoxAgent[Params, In, Out] interface
// back into the registry's any-typed dispatch (spec §4.4
// "agentRegistry").
func Bind[Params, In, Out any](c *VoxContext, agent VoxAgent[Params, In, Out]) {
	c.RegisterAgent(agent.Name(), func(ctx context.Context, rawParams, rawInput any) (any, error) {
		params, ok := rawParams.(Params)
		if !ok {
			return nil, fmt.Errorf("orchestrator: agent %s expects params of a different type", agent.Name())
		}
		input, ok := rawInput.(In)
		if !ok {
			return nil, fmt.Errorf("orchestrator: agent %s expects input of a different type", agent.Name())
		}
		return runExecutionLoop(ctx, c, agent, params, input)
	})
}

// runExecutionLoop implements spec §4.4 "Agent execution loop"
// exactly: assemble tools, build the initial message list, iterate
// model steps via PrepareStep/StopCheck, then extract output.
func runExecutionLoop[Params, In, Out any](ctx context.Context, c *VoxContext, agent VoxAgent[Params, In, Out], params Params, input In) (Out, error) {
	var zero Out

	allTools, err := c.Tools(ctx)
	if err != nil {
		return zero, fmt.Errorf("orchestrator: list tools: %w", err)
	}

	activeNames, err := agent.GetActiveTools(ctx, params)
	if err != nil {
		return zero, err
	}
	extraNames, err := agent.GetExtraTools(ctx, params)
	if err != nil {
		return zero, err
	}
	active := selectTools(allTools, append(activeNames, extraNames...))

	system, err := agent.GetSystem(ctx, params)
	if err != nil {
		return zero, err
	}
	initial, err := agent.GetInitialMessages(ctx, params, input)
	if err != nil {
		return zero, err
	}
	messages := append([]llmprovider.Message{{Role: llmprovider.RoleSystem, Text: system}}, initial...)

	maxSteps := agent.MaxSteps()
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	var steps []StepInfo
	var finalText string
	model := ""

	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		plan, err := agent.PrepareStep(ctx, params, input, steps, messages)
		if err != nil {
			return zero, err
		}
		if plan.ActiveTools != nil {
			active = selectTools(allTools, plan.ActiveTools)
		}
		if plan.Messages != nil {
			messages = plan.Messages
		}
		if plan.Model != "" {
			model = plan.Model
		}
		if agent.OnlyLastRound() && len(steps) > 0 {
			messages = lastRoundOnly(messages)
		}

		completion, err := c.llm.Complete(ctx, llmprovider.Request{
			System:   system,
			Messages: messages,
			Tools:    active,
		})
		if err != nil {
			return zero, fmt.Errorf("orchestrator: completion step %d: %w", i, err)
		}
		c.AccumulateUsage(completion.Usage)
		_ = model // not passed on: llmprovider.Request has no model field, so every round uses the provider's model

		messages = append(messages, completion.Message)
		finalText = completion.Message.Text

		if len(completion.Message.ToolCalls) > 0 {
			results, called := invokeToolCalls(ctx, c, completion.Message.ToolCalls)
			messages = append(messages, results...)
			if agent.RemoveUsedTools() {
				active = removeTools(active, called)
			}
		}

		steps = append(steps, StepInfo{Index: i, Completion: completion})

		stop, err := agent.StopCheck(ctx, params, input, steps)
		if err != nil {
			return zero, err
		}
		if stop || completion.StopReason == llmprovider.StopEndTurn {
			break
		}
	}

	output, err := agent.GetOutput(ctx, params, input, finalText)
	if err != nil {
		return zero, err
	}
	if err := agent.PostprocessOutput(ctx, params, output); err != nil {
		return zero, err
	}
	return output, nil
}

func selectTools(all []protocol.Tool, names []string) []protocol.Tool {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []protocol.Tool
	for _, t := range all {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func removeTools(tools []protocol.Tool, used map[string]bool) []protocol.Tool {
	var out []protocol.Tool
	for _, t := range tools {
		if !used[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// lastRoundOnly keeps the leading system message plus the messages
// from the most recent assistant/tool-result round (spec §4.4
// "onlyLastRound").
func lastRoundOnly(messages []llmprovider.Message) []llmprovider.Message {
	if len(messages) == 0 {
		return messages
	}
	cut := len(messages) - 1
	for cut > 0 && messages[cut].Role != llmprovider.RoleAssistant {
		cut--
	}
	out := make([]llmprovider.Message, 0, len(messages)-cut+1)
	if cut > 0 && messages[0].Role == llmprovider.RoleSystem {
		out = append(out, messages[0])
	}
	out = append(out, messages[cut:]...)
	return out
}

func invokeToolCalls(ctx context.Context, c *VoxContext, calls []llmprovider.ToolCall) ([]llmprovider.Message, map[string]bool) {
	called := make(map[string]bool, len(calls))
	results := make([]llmprovider.Message, 0, len(calls))

	for _, call := range calls {
		called[call.Name] = true

		result, err := c.tools.CallTool(ctx, call.Name, call.Arguments)
		content, isErr := unwrapToolResult(result, err)
		results = append(results, llmprovider.Message{
			Role: llmprovider.RoleTool,
			ToolResult: &llmprovider.ToolResultMessage{
				ToolCallID: call.ID,
				Content:    content,
				IsError:    isErr,
			},
		})
	}
	return results, called
}

// unwrapToolResult implements the "unwraps the MCP response shape"
// half of spec §4.4's tool wrapping: MCP returns a Content array, the
// execution loop wants a single text blob for the model.
func unwrapToolResult(result *protocol.CallToolResult, err error) (string, bool) {
	if err != nil {
		return err.Error(), true
	}
	if result == nil {
		return "", false
	}
	if result.StructuredContent != nil {
		b, marshalErr := json.Marshal(result.StructuredContent)
		if marshalErr == nil {
			return string(b), result.IsError
		}
	}
	var text string
	for _, c := range result.Content {
		text += c.Text
	}
	return text, result.IsError
}
