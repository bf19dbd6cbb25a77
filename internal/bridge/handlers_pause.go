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
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vox-deorum/voxd/internal/wire"
)

// handlePausePlayer serves POST /external/pause-player/{id} (spec
// §4.2 "Pause coordination"). The paused-player set is process-wide
// and survives individual request failures, but not process restart.
func (b *Bridge) handlePausePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	b.pauseMu.Lock()
	b.paused[id] = struct{}{}
	b.pauseMu.Unlock()

	_, sendErr := b.conn.Send(r.Context(), wire.TypePausePlayer, wire.PausePlayerArgs{PlayerID: id})
	writeJSON(w, http.StatusOK, map[string]bool{"success": sendErr == nil})
}

// handleResumePlayer serves DELETE /external/pause-player/{id}.
func (b *Bridge) handleResumePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	b.pauseMu.Lock()
	delete(b.paused, id)
	b.pauseMu.Unlock()

	_, sendErr := b.conn.Send(r.Context(), wire.TypeResumePlayer, wire.PausePlayerArgs{PlayerID: id})
	writeJSON(w, http.StatusOK, map[string]bool{"success": sendErr == nil})
}
