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
package bridge

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/wire"
)

type luaCallRequest struct {
	Function string        `json:"function"`
	Args     []interface{} `json:"args"`
}

type luaCallResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleLuaCall serves POST /lua/call (spec §4.2/§6).
func (b *Bridge) handleLuaCall(w http.ResponseWriter, r *http.Request) {
	var req luaCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, luaCallResponse{Success: false, Error: err.Error()})
		return
	}

	resp, err := b.conn.Send(r.Context(), wire.TypeLuaCall, wire.LuaCallArgs{Function: req.Function, Args: req.Args})
	if err != nil {
		writeJSON(w, http.StatusOK, luaCallResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, luaCallResponse{Success: resp.Success, Result: resp.Result, Error: resp.Error})
}

type luaBatchRequest struct {
	Calls []luaCallRequest `json:"calls"`
}

type luaBatchResponse struct {
	Results []luaCallResponse `json:"results"`
}

// handleLuaBatch serves POST /lua/batch. Calls are issued concurrently
// but the response preserves input order (spec §4.2).
func (b *Bridge) handleLuaBatch(w http.ResponseWriter, r *http.Request) {
	var req luaBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, luaBatchResponse{})
		return
	}

	results := make([]luaCallResponse, len(req.Calls))
	var wg sync.WaitGroup
	for i, call := range req.Calls {
		wg.Add(1)
		go func(i int, call luaCallRequest) {
			defer wg.Done()
			resp, err := b.conn.Send(r.Context(), wire.TypeLuaCall, wire.LuaCallArgs{Function: call.Function, Args: call.Args})
			if err != nil {
				results[i] = luaCallResponse{Success: false, Error: err.Error()}
				return
			}
			results[i] = luaCallResponse{Success: resp.Success, Result: resp.Result, Error: resp.Error}
		}(i, call)
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, luaBatchResponse{Results: results})
}

type luaExecuteRequest struct {
	Script string `json:"script"`
}

// handleLuaExecute serves POST /lua/execute. The spec notes this
// accepts arbitrary code; see SPEC_FULL.md's clarified open question
// on lua_execute trust (no authentication layer is defined).
func (b *Bridge) handleLuaExecute(w http.ResponseWriter, r *http.Request) {
	var req luaExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, luaCallResponse{Success: false, Error: err.Error()})
		return
	}

	resp, err := b.conn.Send(r.Context(), wire.TypeLuaExecute, wire.LuaExecuteArgs{Script: req.Script})
	if err != nil {
		writeJSON(w, http.StatusOK, luaCallResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, luaCallResponse{Success: resp.Success, Result: resp.Result, Error: resp.Error})
}

type luaFunctionsResponse struct {
	Functions []string `json:"functions"`
}

// handleLuaFunctions serves GET /lua/functions.
func (b *Bridge) handleLuaFunctions(w http.ResponseWriter, r *http.Request) {
	resp, err := b.conn.Send(r.Context(), wire.TypeLuaCall, wire.LuaCallArgs{Function: "__ListRegisteredFunctions"})
	if err != nil {
		writeJSON(w, http.StatusOK, luaFunctionsResponse{})
		return
	}
	var fns []string
	if err := json.Unmarshal(resp.Result, &fns); err != nil {
		b.log.Warn("malformed function list from DLL", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, luaFunctionsResponse{Functions: fns})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
