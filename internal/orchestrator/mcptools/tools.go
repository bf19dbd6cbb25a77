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
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

// textResult wraps s as a single-content MCP tool result.
func textResult(s string) *protocol.CallToolResult {
	return &protocol.CallToolResult{Content: []protocol.Content{{Type: "text", Text: s}}}
}

func jsonResult(v any) (*protocol.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &protocol.CallToolResult{
		Content:           []protocol.Content{{Type: "text", Text: string(b)}},
		StructuredContent: map[string]any{"result": v},
	}, nil
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argStringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// filterBlacklistedStrategies drops any row whose StrategyType matches
// one of blacklist. An empty blacklist returns rows unchanged.
func filterBlacklistedStrategies(rows []map[string]any, blacklist []string) []map[string]any {
	if len(blacklist) == 0 {
		return rows
	}
	blocked := make(map[string]bool, len(blacklist))
	for _, s := range blacklist {
		blocked[s] = true
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if s, ok := row["StrategyType"].(string); ok && blocked[s] {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// RegisterKnowledgeTools wires the read-only knowledge tools of spec
// §4.4 "MCP server surface" to the given Knowledge Store.
func RegisterKnowledgeTools(r *Registry, store *knowledge.Store) {
	r.Register(ToolSpec{
		Name:         "get-players",
		Description:  "Get summary knowledge for every player; rows are not filtered by the calling player's visibility.",
		Params:       map[string]string{"PlayerID": "integer"},
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			rows, err := store.GetAllPublicKnowledge(ctx, "PlayerSummaries")
			if err != nil {
				return nil, err
			}
			return jsonResult(rows)
		},
	})

	r.Register(ToolSpec{
		Name:         "get-events",
		Description:  "Get every logged game event; the after and before arguments are not applied.",
		Params:       map[string]string{"PlayerID": "integer", "after": "integer", "before": "integer"},
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			rows, err := store.GetAllPublicKnowledge(ctx, "EventLog")
			if err != nil {
				return nil, err
			}
			return jsonResult(rows)
		},
	})

	r.Register(ToolSpec{
		Name:         "get-cities",
		Description:  "Get city knowledge; a cityKey lookup is filtered by the calling player's visibility, the full list is not.",
		Params:       map[string]string{"PlayerID": "integer"},
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			playerID := argInt(args, "PlayerID")
			key := argString(args, "cityKey")
			if key != "" {
				row, err := store.ReadPlayerKnowledge(ctx, playerID, "CityInformations", key, nil)
				if err != nil {
					return nil, err
				}
				return jsonResult(row)
			}
			rows, err := store.GetAllPublicKnowledge(ctx, "CityInformations")
			if err != nil {
				return nil, err
			}
			return jsonResult(rows)
		},
	})

	// get-options carries an always-accepted StrategyBlacklist param
	// (clarified open question: getPlayerOptions blacklist), filtering
	// out any option row whose StrategyType names a blacklisted
	// strategy; callers that don't care pass an empty/omitted slice.
	r.Register(ToolSpec{
		Name:         "get-options",
		Description:  "Get available decision options for the calling player, minus any blacklisted strategies.",
		Params:       map[string]string{"PlayerID": "integer", "StrategyBlacklist": "array"},
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			rows, err := store.GetAllPublicKnowledge(ctx, "PlayerOptions")
			if err != nil {
				return nil, err
			}
			return jsonResult(filterBlacklistedStrategies(rows, argStringSlice(args, "StrategyBlacklist")))
		},
	})

	for _, spec := range []struct{ name, table, desc string }{
		{"get-victory-progress", "VictoryProgress", "Get the current victory-condition progress board."},
		{"get-military-report", "MilitaryReports", "Get a player's military assessment."},
		{"get-opinions", "DiplomaticOpinions", "Get diplomatic opinion summaries."},
		{"get-metadata", "GameMetadataView", "Get free-form game metadata set by set-metadata."},
		{"get-combat-preview", "CombatPreviews", "Get a combat-outcome preview for a pending attack."},
		{"get-espionage", "EspionageReports", "Get espionage-mission reports."},
		{"get-world-congress", "WorldCongressState", "Get the current World Congress proposal state."},
	} {
		spec := spec
		r.Register(ToolSpec{
			Name:         spec.name,
			Description:  spec.desc,
			Params:       map[string]string{"PlayerID": "integer"},
			AutoComplete: []string{"PlayerID"},
			Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
				rows, err := store.GetAllPublicKnowledge(ctx, spec.table)
				if err != nil {
					return nil, err
				}
				return jsonResult(rows)
			},
		})
	}
}

// RegisterDatabaseTools wires the static-rules-database lookup tools
// (spec §4.4 "Database tools: get-building, get-policy, etc.").
func RegisterDatabaseTools(r *Registry, store *knowledge.Store) {
	for _, entry := range []struct{ name, table, keyArg string }{
		{"get-building", "BuildingRules", "buildingType"},
		{"get-policy", "PolicyRules", "policyType"},
		{"get-unit", "UnitRules", "unitType"},
		{"get-tech", "TechRules", "techType"},
	} {
		entry := entry
		r.Register(ToolSpec{
			Name:        entry.name,
			Description: fmt.Sprintf("Look up static rules-database entry %s.", entry.table),
			Params:      map[string]string{entry.keyArg: "string"},
			Required:    []string{entry.keyArg},
			Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
				key := argString(args, entry.keyArg)
				rows, err := store.GetAllPublicKnowledge(ctx, entry.table)
				if err != nil {
					return nil, err
				}
				for _, row := range rows {
					if fmt.Sprintf("%v", row[entry.keyArg]) == key {
						return jsonResult(row)
					}
				}
				return textResult(fmt.Sprintf("no %s row for %s=%s", entry.table, entry.keyArg, key)), nil
			},
		})
	}
}

// RegisterActionTools wires the game-mutating tools of spec §4.4
// "Action tools" through the DLL Connector.
func RegisterActionTools(r *Registry, conn *connector.Connector) {
	simple := func(name, msgType, desc string, params map[string]string, auto []string) {
		r.Register(ToolSpec{
			Name:         name,
			Description:  desc,
			Params:       params,
			AutoComplete: auto,
			Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
				resp, err := conn.Send(ctx, msgType, args)
				if err != nil {
					return nil, err
				}
				return jsonResult(resp)
			},
		})
	}

	simple("set-strategy", "lua_call", "Set the calling player's high-level strategy.",
		map[string]string{"PlayerID": "integer", "strategy": "string"}, []string{"PlayerID"})
	simple("set-persona", "lua_call", "Set the calling player's leader persona text.",
		map[string]string{"PlayerID": "integer", "persona": "string"}, []string{"PlayerID"})
	simple("set-flavors", "lua_call", "Adjust the calling player's AI flavor weights.",
		map[string]string{"PlayerID": "integer", "flavors": "object"}, []string{"PlayerID"})
	simple("set-policy", "lua_call", "Adopt or change a social policy.",
		map[string]string{"PlayerID": "integer", "policyType": "string"}, []string{"PlayerID"})
	simple("set-research", "lua_call", "Set the current research target.",
		map[string]string{"PlayerID": "integer", "techType": "string"}, []string{"PlayerID"})
	simple("declare-war", "lua_call", "Declare war on another player.",
		map[string]string{"PlayerID": "integer", "targetID": "integer"}, []string{"PlayerID"})
	simple("make-peace", "lua_call", "Offer peace to another player.",
		map[string]string{"PlayerID": "integer", "targetID": "integer"}, []string{"PlayerID"})
	simple("denounce", "lua_call", "Denounce another player.",
		map[string]string{"PlayerID": "integer", "targetID": "integer"}, []string{"PlayerID"})
	simple("set-city-production", "lua_call", "Set a city's production queue.",
		map[string]string{"PlayerID": "integer", "cityKey": "string", "item": "string"}, []string{"PlayerID"})
	simple("unit-command", "lua_call", "Issue a command to a unit.",
		map[string]string{"PlayerID": "integer", "unitKey": "string", "command": "string"}, []string{"PlayerID"})
	simple("build-improvement", "lua_call", "Queue a tile improvement.",
		map[string]string{"PlayerID": "integer", "plotKey": "string", "improvementType": "string"}, []string{"PlayerID"})
	simple("assign-trade-route", "lua_call", "Assign a trade unit to a route.",
		map[string]string{"PlayerID": "integer", "unitKey": "string", "destinationKey": "string"}, []string{"PlayerID"})
	simple("sell-building", "lua_call", "Sell a building from a city.",
		map[string]string{"PlayerID": "integer", "cityKey": "string", "buildingType": "string"}, []string{"PlayerID"})
	simple("use-great-person", "lua_call", "Expend a great person's ability.",
		map[string]string{"PlayerID": "integer", "unitKey": "string", "action": "string"}, []string{"PlayerID"})
	simple("relay-diplomatic-message", "lua_call", "Send a diplomatic message to another player.",
		map[string]string{"PlayerID": "integer", "targetID": "integer", "message": "string"}, []string{"PlayerID"})
	simple("lua-executor", "lua_execute", "Run an arbitrary Lua script (unrestricted; accepted as designed).",
		map[string]string{"script": "string"}, nil)
	simple("set-metadata", "lua_call", "Set a free-form game-metadata key.",
		map[string]string{"key": "string", "value": "string"}, nil)

	r.Register(ToolSpec{
		Name:        "pause-game",
		Description: "Pause the game for a player while their agent is executing.",
		Params:      map[string]string{"PlayerID": "integer"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			resp, err := conn.Send(ctx, "pause_player", args)
			if err != nil {
				return nil, err
			}
			return jsonResult(resp)
		},
	})
	r.Register(ToolSpec{
		Name:        "resume-game",
		Description: "Resume the game for a player after their agent has finished.",
		Params:      map[string]string{"PlayerID": "integer"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			resp, err := conn.Send(ctx, "resume_player", args)
			if err != nil {
				return nil, err
			}
			return jsonResult(resp)
		},
	})
}
