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
	"runtime"
	"time"
)

type healthResponse struct {
	Success      bool    `json:"success"`
	DLLConnected bool    `json:"dll_connected"`
	UptimeSec    float64 `json:"uptime"`
}

// handleHealth serves GET /health (spec §4.2/§6).
func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:      true,
		DLLConnected: b.conn.IsConnected(),
		UptimeSec:    time.Since(b.startTime).Seconds(),
	})
}

type statsResponse struct {
	DLLConnected      bool    `json:"dll_connected"`
	PendingRequests   int     `json:"pending_requests"`
	ReconnectAttempts int     `json:"reconnect_attempts"`
	ExternalFunctions int     `json:"external_functions"`
	PausedPlayers     int     `json:"paused_players"`
	UptimeSec         float64 `json:"uptime"`
	MemoryAllocMB     float64 `json:"memory_alloc_mb"`
}

// handleStats serves GET /stats (spec §4.2 getServiceStats()).
func (b *Bridge) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := b.conn.GetStats()

	b.extMu.RLock()
	extCount := len(b.ext)
	b.extMu.RUnlock()

	b.pauseMu.Lock()
	pausedCount := len(b.paused)
	b.pauseMu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, statsResponse{
		DLLConnected:      stats.Connected,
		PendingRequests:   stats.PendingRequests,
		ReconnectAttempts: stats.ReconnectAttempts,
		ExternalFunctions: extCount,
		PausedPlayers:     pausedCount,
		UptimeSec:         time.Since(b.startTime).Seconds(),
		MemoryAllocMB:     float64(mem.Alloc) / (1024 * 1024),
	})
}
