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

// Package wire defines the named-pipe message shapes exchanged between
// the DLL Connector and the game DLL (spec §3.1), and the
// newline-delimited JSON codec used to frame them.
package wire

import (
	"encoding/json"
	"fmt"
)

// Client-to-server message type tags (spec §6 "Named-pipe wire protocol").
const (
	TypeLuaCall            = "lua_call"
	TypeLuaBatch           = "lua_batch"
	TypeLuaExecute         = "lua_execute"
	TypeRegisterExternal   = "register_external"
	TypeUnregisterExternal = "unregister_external"
	TypePausePlayer        = "pause_player"
	TypeResumePlayer       = "resume_player"
)

// Server-to-client message type tags.
const (
	TypeResponse  = "response"
	TypeGameEvent = "game_event"
)

// Request is a client-assigned RPC sent to the DLL. ID is a monotonic
// integer, unique within one connector instance (spec §3.1). The
// type-specific fields (e.g. LuaCallArgs.Function/Args) are spread as
// siblings of Type/ID on the wire — {"type":..., "id":..., ...args}
// — not nested under an "args" key (spec §3.1, §4.2, §6).
type Request struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`

	// Raw holds the full decoded frame, for callers that need to pull
	// the type-specific sibling fields back out (e.g. a fake DLL
	// decoding LuaCallArgs from the same bytes). It is never populated
	// by json.Unmarshal directly since Go ignores the "-" tag; callers
	// that parse a frame into a Request must copy the bytes in
	// themselves if they need it.
	Raw json.RawMessage `json:"-"`
}

// EncodeRequest marshals msgType and id alongside the type-specific
// fields of args as one flat JSON object, per Request's wire shape.
// args must marshal to a JSON object, or be nil for argument-less
// requests (e.g. unregister_external).
func EncodeRequest(msgType string, id int64, args interface{}) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("wire: marshal request args: %w", err)
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, fmt.Errorf("wire: request args must marshal to a JSON object: %w", err)
			}
		}
	}

	typeJSON, err := json.Marshal(msgType)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal request type: %w", err)
	}
	idJSON, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal request id: %w", err)
	}
	fields["type"] = typeJSON
	fields["id"] = idJSON

	return json.Marshal(fields)
}

// Envelope is the minimal shape needed to discriminate an incoming
// frame before decoding it fully: every message carries "type", and
// responses additionally carry "id".
type Envelope struct {
	Type string `json:"type"`
	ID   *int64 `json:"id,omitempty"`
}

// Response answers exactly one prior Request, identified by ID
// (spec §3.1 invariant: every response carries the id of exactly one
// prior request).
type Response struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// GameEvent is a fire-and-forget notification from the DLL; it is
// never correlated to a request (spec §3.1).
type GameEvent struct {
	Type     string          `json:"type"`
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload"`
	GameID   string          `json:"gameID,omitempty"`
	Turn     int             `json:"turn,omitempty"`
	PlayerID int             `json:"playerID,omitempty"`
}

// LuaCallArgs is the payload of a lua_call request.
type LuaCallArgs struct {
	Function string        `json:"function"`
	Args     []interface{} `json:"args"`
}

// LuaExecuteArgs is the payload of a lua_execute request.
type LuaExecuteArgs struct {
	Script string `json:"script"`
}

// PausePlayerArgs is the payload of pause_player/resume_player requests.
type PausePlayerArgs struct {
	PlayerID int `json:"playerID"`
}
