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

// Package mcptools implements the MCP tool surface the Agent
// Orchestrator exposes to VoxAgents (spec §4.4 "MCP server surface").
// Each tool is registered with an explicit list of "auto-complete"
// parameters the orchestrator injects from the calling context rather
// than exposing to the model — the same idea the teacher's MCP tool
// adapter applies when it strips transport-only fields before handing
// a schema to the LLM.
package mcptools

import (
	"context"
	"fmt"
	"sync"

	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

// Handler implements one tool's behavior. args has already had its
// auto-complete fields injected by the registry.
type Handler func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error)

// ToolSpec declares one MCP tool's public schema and the fields the
// registry injects at call time rather than exposing to the model
// (spec §4.4 "Tool wrapping": "strips auto-complete parameters from
// the public schema and re-injects them from context at call time").
type ToolSpec struct {
	Name        string
	Description string
	// Params lists {name: jsonSchemaType} for model-visible arguments.
	Params map[string]string
	// Required lists which Params entries are mandatory.
	Required []string
	// AutoComplete lists context keys injected into args before
	// Handler runs, and removed from the schema shown to the model
	// (e.g. "PlayerID" sourced from the calling VoxPlayer).
	AutoComplete []string
	Handler      Handler
}

// ContextValues carries the auto-complete values for one tool call,
// attached to ctx by the orchestrator before invoking CallTool.
type ContextValues map[string]any

type contextValuesKey struct{}

// WithContextValues attaches auto-complete values (PlayerID, GameID,
// Turn, ...) to ctx for injection into any tool call made while ctx is
// active.
func WithContextValues(ctx context.Context, values ContextValues) context.Context {
	return context.WithValue(ctx, contextValuesKey{}, values)
}

func contextValuesFrom(ctx context.Context) ContextValues {
	v, _ := ctx.Value(contextValuesKey{}).(ContextValues)
	return v
}

// Registry implements pkg/mcp/server.ToolProvider and
// internal/orchestrator.ToolCaller over a fixed set of ToolSpecs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]ToolSpec
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(spec ToolSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
}

// ListTools returns the MCP-visible schema for every registered tool,
// with auto-complete parameters stripped (spec §4.4 "strips
// auto-complete parameters from the public schema").
func (r *Registry) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]protocol.Tool, 0, len(r.specs))
	for _, spec := range r.specs {
		tools = append(tools, protocol.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: buildSchema(spec),
		})
	}
	return tools, nil
}

func buildSchema(spec ToolSpec) map[string]any {
	auto := make(map[string]bool, len(spec.AutoComplete))
	for _, a := range spec.AutoComplete {
		auto[a] = true
	}

	props := make(map[string]any)
	for name, typ := range spec.Params {
		if auto[name] {
			continue
		}
		props[name] = map[string]any{"type": typ}
	}

	var required []string
	for _, r := range spec.Required {
		if !auto[r] {
			required = append(required, r)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// CallTool injects auto-complete values from ctx and invokes the
// tool's Handler (spec §4.4 "re-injects them from context at call
// time, e.g. PlayerID sourced from parameters.playerID").
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (*protocol.CallToolResult, error) {
	r.mu.RLock()
	spec, ok := r.specs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mcptools: unknown tool %q", name)
	}

	merged := make(map[string]any, len(args)+len(spec.AutoComplete))
	for k, v := range args {
		merged[k] = v
	}
	values := contextValuesFrom(ctx)
	for _, key := range spec.AutoComplete {
		if v, ok := values[key]; ok {
			merged[key] = v
		}
	}

	return spec.Handler(ctx, merged)
}
