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
	"time"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/internal/llmprovider"
	"github.com/vox-deorum/voxd/internal/orchestrator"
	"github.com/vox-deorum/voxd/internal/orchestrator/mcptools"
	"github.com/vox-deorum/voxd/internal/orchestrator/strategist"
)

// registerEventSchemas wires the representative event types named in
// spec §3.3/§4.3 into the Knowledge Store's ingestion pipeline. This
// is not the exhaustive game-event catalogue (per-event field layouts
// are domain content, out of spec's scope per §1 Non-goals); it
// exercises the positional-decode/validate/persist path end to end.
func registerEventSchemas(p *knowledge.Pipeline) {
	p.Register("PlayerEndTurnInitiated", knowledge.EventSchema{
		Table:    "TurnLog",
		Fields:   []string{"PlayerID"},
		KeyField: "PlayerID",
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"PlayerID"},
			"properties": map[string]any{
				"PlayerID": map[string]any{"type": "integer"},
			},
		},
	})

	p.Register("CityFounded", knowledge.EventSchema{
		Table:    "CityInformations",
		Fields:   []string{"CityKey", "OwnerID", "Name", "X", "Y"},
		KeyField: "CityKey",
		Mutable:  true,
		Schema: map[string]any{
			"type":     "object",
			"required": []any{"CityKey", "OwnerID"},
			"properties": map[string]any{
				"CityKey": map[string]any{"type": "string"},
				"OwnerID": map[string]any{"type": "integer"},
				"Name":    map[string]any{"type": "string"},
				"X":       map[string]any{"type": "integer"},
				"Y":       map[string]any{"type": "integer"},
			},
		},
	})
}

// ensureKnowledgeTables creates the representative tables the
// registered event schemas and mcptools read-only tool handlers expect
// (spec §4.3 "Schema is created idempotently").
func ensureKnowledgeTables(ctx context.Context, store *knowledge.Store) error {
	if err := store.EnsureTimedKnowledgeTable(ctx, "TurnLog"); err != nil {
		return err
	}
	if err := store.EnsureMutableKnowledgeTable(ctx, "CityInformations"); err != nil {
		return err
	}
	for _, table := range []string{
		"PlayerSummaries", "EventLog", "PlayerOptions", "VictoryProgress",
		"MilitaryReports", "DiplomaticOpinions", "GameMetadataView",
		"CombatPreviews", "EspionageReports", "WorldCongressState",
	} {
		if err := store.EnsurePublicKnowledgeTable(ctx, table, "Key"); err != nil {
			return err
		}
	}
	for _, table := range []string{"BuildingRules", "PolicyRules", "UnitRules", "TechRules"} {
		if err := store.EnsurePublicKnowledgeTable(ctx, table, "Key"); err != nil {
			return err
		}
	}
	return nil
}

// buildLLMProvider constructs the generic model interface's concrete
// backend from cfg.LLM (spec §4.4 "generic model interface").
func buildLLMProvider(ctx context.Context, cfg config.LLMConfig) (llmprovider.Provider, error) {
	rateLimiter := llmprovider.DefaultRateLimiterConfig()
	rateLimiter.Enabled = cfg.RateLimitEnabled
	rateLimiter.RequestsPerSecond = cfg.RequestsPerSecond
	rateLimiter.TokensPerMinute = cfg.TokensPerMinute

	return llmprovider.New(ctx, llmprovider.FactoryConfig{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,

		AnthropicAPIKey: cfg.AnthropicAPIKey,

		BedrockRegion:          cfg.BedrockRegion,
		BedrockAccessKeyID:     cfg.BedrockAccessKeyID,
		BedrockSecretAccessKey: cfg.BedrockSecretAccessKey,
		BedrockSessionToken:    cfg.BedrockSessionToken,
		BedrockProfile:         cfg.BedrockProfile,

		RateLimiter: rateLimiter,
	})
}

// buildToolRegistry wires the knowledge, database, and action tool
// sets into one mcptools.Registry (spec §4.4 "MCP server surface").
func buildToolRegistry(store *knowledge.Store, conn *connector.Connector) *mcptools.Registry {
	registry := mcptools.NewRegistry()
	mcptools.RegisterKnowledgeTools(registry, store)
	mcptools.RegisterDatabaseTools(registry, store)
	mcptools.RegisterActionTools(registry, conn)
	return registry
}

// buildManager constructs the orchestrator.Manager with the default
// strategist VoxAgent bound into every freshly created VoxContext
// (spec §4.5 "register is invoked on every new VoxContext").
func buildManager(registry *mcptools.Registry, llm llmprovider.Provider, logger *zap.Logger) *orchestrator.Manager {
	return orchestrator.NewManager(registry, llm, func(c *orchestrator.VoxContext) {
		orchestrator.Bind(c, strategist.New("strategist"))
	}, logger.Named("orchestrator"))
}

// llmPlayersFromConfig converts the agentName -> playerID config map
// into the playerID -> agentName map orchestrator.Manager expects.
func llmPlayersFromConfig(cfg map[string]int) orchestrator.LLMPlayers {
	players := make(orchestrator.LLMPlayers, len(cfg))
	for agentName, playerID := range cfg {
		players[playerID] = agentName
	}
	return players
}

func autoSaveInterval(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
