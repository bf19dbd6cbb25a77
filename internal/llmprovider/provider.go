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

// Package llmprovider defines the generic model interface the Agent
// Orchestrator drives VoxAgent executions through, plus concrete
// bindings for the Anthropic API and Bedrock-hosted Claude models.
// Spec treats the LLM as an interchangeable backend; nothing in
// internal/orchestrator depends on a specific provider package.
package llmprovider

import (
	"context"

	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

// Role mirrors the MCP prompt-message roles used on the wire.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolResultMessage carries a tool's output back to the model.
type ToolResultMessage struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Message is one turn in the conversation sent to/from a provider.
type Message struct {
	Role       Role
	Text       string
	ToolCalls  []ToolCall
	ToolResult *ToolResultMessage
}

// Usage reports token accounting for a single completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StopReason explains why a completion round ended.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopCanceled  StopReason = "canceled"
)

// Completion is one model response, possibly carrying tool calls that
// the orchestrator's execution loop must satisfy before continuing.
type Completion struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

// Request bundles everything a provider needs to produce one
// completion step of an agent execution.
type Request struct {
	System      string
	Messages    []Message
	Tools       []protocol.Tool
	MaxTokens   int
	Temperature float64
}

// Provider is the generic model interface. VoxAgent execution never
// imports a specific vendor package; it is constructed with a
// Provider chosen by internal/config's llm.provider key.
type Provider interface {
	// Complete runs one non-streaming completion round.
	Complete(ctx context.Context, req Request) (*Completion, error)

	// Name identifies the provider for logging and token accounting.
	Name() string
}
