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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/wire"
)

type registerExternalRequest struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Async   bool   `json:"async"`
	Timeout int    `json:"timeout"`
}

// handleRegisterExternal serves POST /external/register (spec §4.2
// "External-function direction"). A second registration of the same
// name overwrites the first.
func (b *Bridge) handleRegisterExternal(w http.ResponseWriter, r *http.Request) {
	var req registerExternalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	b.extMu.Lock()
	b.ext[req.Name] = ExternalFunction{Name: req.Name, URL: req.URL, Async: req.Async, TimeoutMS: req.Timeout}
	b.extMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleUnregisterExternal serves DELETE /external/register/{name}.
func (b *Bridge) handleUnregisterExternal(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	b.extMu.Lock()
	delete(b.ext, name)
	b.extMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type externalFunctionsResponse struct {
	Functions []ExternalFunction `json:"functions"`
}

// handleExternalFunctions serves GET /external/functions.
func (b *Bridge) handleExternalFunctions(w http.ResponseWriter, r *http.Request) {
	b.extMu.RLock()
	out := make([]ExternalFunction, 0, len(b.ext))
	for _, f := range b.ext {
		out = append(out, f)
	}
	b.extMu.RUnlock()

	writeJSON(w, http.StatusOK, externalFunctionsResponse{Functions: out})
}

// externalCallPayload is the positional/keyed payload carried by a
// game_event of type "external_call" (spec §4.2 "game→external
// direction").
type externalCallPayload struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	CallID string          `json:"callID"`
}

// dispatchExternalCall looks up the registered handler for a game
// event's external-call payload and issues the outbound HTTP POST.
// With async=false the call runs on the event loop and its result is
// sent back before the next event is handled; with async=true it runs
// in a background goroutine and its result is sent when it completes.
// In both cases the only message sent back is that one result; no
// separate acknowledgement precedes it.
func (b *Bridge) dispatchExternalCall(ctx context.Context, ev wire.GameEvent) {
	var call externalCallPayload
	if err := json.Unmarshal(ev.Payload, &call); err != nil {
		b.log.Warn("malformed external_call payload", zap.Error(err))
		return
	}

	b.extMu.RLock()
	fn, ok := b.ext[call.Name]
	b.extMu.RUnlock()
	if !ok {
		b.log.Warn("external_call for unregistered function", zap.String("name", call.Name))
		return
	}

	if fn.Async {
		go b.invokeExternal(context.Background(), fn, call)
		return
	}
	b.invokeExternal(ctx, fn, call)
}

func (b *Bridge) invokeExternal(ctx context.Context, fn ExternalFunction, call externalCallPayload) {
	timeout := time.Duration(fn.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, fn.URL, bytes.NewReader(call.Args))
	if err != nil {
		b.log.Warn("failed to build external call request", zap.String("name", fn.Name), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.log.Warn("external call failed", zap.String("name", fn.Name), zap.Error(err))
		b.replyExternalCall(ctx, call.CallID, nil, err.Error())
		return
	}
	defer resp.Body.Close()

	var result json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&result)
	b.replyExternalCall(ctx, call.CallID, result, "")
}

// replyExternalCall sends the external call's outcome back through
// the connector as a game event carrying the original callID, letting
// the DLL correlate it without the connector's own request/response
// table (external calls originate from the DLL, not from us).
func (b *Bridge) replyExternalCall(ctx context.Context, callID string, result json.RawMessage, errMsg string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"callID": callID,
		"result": result,
		"error":  errMsg,
	})
	_, err := b.conn.Send(ctx, "external_call_result", json.RawMessage(payload))
	if err != nil {
		b.log.Warn("failed to deliver external call result", zap.String("callID", callID), zap.Error(err))
	}
}
