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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vox-deorum/voxd/pkg/mcp/protocol"
)

func TestListToolsStripsAutoCompleteParams(t *testing.T) {
	r := NewRegistry()
	r.Register(ToolSpec{
		Name:         "get-cities",
		Params:       map[string]string{"PlayerID": "integer", "cityKey": "string"},
		Required:     []string{"PlayerID"},
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			return textResult("ok"), nil
		},
	})

	tools, err := r.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)

	props := tools[0].InputSchema["properties"].(map[string]any)
	_, hasPlayerID := props["PlayerID"]
	require.False(t, hasPlayerID, "auto-complete param must not be in the public schema")
	_, hasCityKey := props["cityKey"]
	require.True(t, hasCityKey)

	_, hasRequired := tools[0].InputSchema["required"]
	require.False(t, hasRequired, "PlayerID was the only required field and it is auto-complete")
}

func TestCallToolInjectsContextValues(t *testing.T) {
	r := NewRegistry()
	var gotPlayerID any
	r.Register(ToolSpec{
		Name:         "get-cities",
		AutoComplete: []string{"PlayerID"},
		Handler: func(ctx context.Context, args map[string]any) (*protocol.CallToolResult, error) {
			gotPlayerID = args["PlayerID"]
			return textResult("ok"), nil
		},
	})

	ctx := WithContextValues(context.Background(), ContextValues{"PlayerID": 3})
	_, err := r.CallTool(ctx, "get-cities", map[string]any{"cityKey": "x"})
	require.NoError(t, err)
	require.Equal(t, 3, gotPlayerID)
}

func TestCallToolUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.CallTool(context.Background(), "nonexistent", nil)
	require.Error(t, err)
}
