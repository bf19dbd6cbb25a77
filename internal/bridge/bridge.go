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

// Package bridge implements the Bridge Service (spec §4.2): the HTTP
// surface that fronts the DLL Connector for Lua calls, external
// function callbacks, pause coordination, and game-event fan-out.
package bridge

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/wire"
)

// ExternalFunction is a game→external callback registered through
// POST /external/register (spec §4.2 "External-function direction").
type ExternalFunction struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Async     bool   `json:"async"`
	TimeoutMS int    `json:"timeout"`
}

// Bridge owns the single process-wide connector instance and the
// in-memory registries the spec requires to survive pipe reconnects
// (external functions, paused players) but not process restarts.
type Bridge struct {
	conn *connector.Connector
	log  *zap.Logger

	httpClient *http.Client

	startTime time.Time

	extMu sync.RWMutex
	ext   map[string]ExternalFunction

	pauseMu sync.Mutex
	paused  map[int]struct{}

	sse *sseHub

	cancelEventLoop context.CancelFunc
}

// New creates a Bridge fronting conn. Call Start to begin consuming
// connector events and Router to obtain the http.Handler to serve.
func New(conn *connector.Connector, pauseCfg config.BridgePauseSetConfig, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	highWater := pauseCfg.SSEQueueHighWaterMark
	if highWater <= 0 {
		highWater = 1000
	}
	return &Bridge{
		conn:       conn,
		log:        logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		startTime:  time.Now(),
		ext:        make(map[string]ExternalFunction),
		paused:     make(map[int]struct{}),
		sse:        newSSEHub(highWater),
	}
}

// Start begins consuming connector game events (fan-out to SSE
// clients, external-function dispatch) and reconnect notifications
// (re-applying the paused-player set). It returns immediately; call
// Stop to end the background loop.
func (b *Bridge) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancelEventLoop = cancel

	events := b.conn.Events(ctx)
	lifecycle := b.conn.Lifecycle(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				b.handleGameEvent(ctx, ev.Payload)
			case le, ok := <-lifecycle:
				if !ok {
					return
				}
				if le.Payload.State == connector.StateConnected {
					b.reapplyPauseSet(ctx)
				}
			}
		}
	}()
}

// Stop ends the background event-consuming loop.
func (b *Bridge) Stop() {
	if b.cancelEventLoop != nil {
		b.cancelEventLoop()
	}
	b.sse.closeAll()
}

func (b *Bridge) handleGameEvent(ctx context.Context, ev wire.GameEvent) {
	b.sse.publish(ev)

	if ev.Event == "external_call" || ev.Event == "ExternalCall" {
		b.dispatchExternalCall(ctx, ev)
	}
}

// reapplyPauseSet re-issues pause commands for every player in the
// paused set after a reconnect, since the DLL does not remember pause
// state across a connector drop (spec §4.2 "Pause coordination").
func (b *Bridge) reapplyPauseSet(ctx context.Context) {
	b.pauseMu.Lock()
	players := make([]int, 0, len(b.paused))
	for p := range b.paused {
		players = append(players, p)
	}
	b.pauseMu.Unlock()

	for _, p := range players {
		if _, err := b.conn.Send(ctx, wire.TypePausePlayer, wire.PausePlayerArgs{PlayerID: p}); err != nil {
			b.log.Warn("failed to reapply pause after reconnect", zap.Int("playerID", p), zap.Error(err))
		}
	}
}
