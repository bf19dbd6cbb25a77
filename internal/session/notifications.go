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
package session

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/knowledge"
	"github.com/vox-deorum/voxd/internal/pubsub"
	"github.com/vox-deorum/voxd/internal/wire"
)

// dispatchEvents installs the notification handlers of spec §4.5 step
// 3 over the connector's game-event broker.
func (s *StrategistSession) dispatchEvents(ctx context.Context, events <-chan pubsub.Event[wire.GameEvent]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleGameEvent(ctx, ev.Payload)
		}
	}
}

func (s *StrategistSession) handleGameEvent(ctx context.Context, ev wire.GameEvent) {
	switch ev.Event {
	case eventPlayerDoneTurn:
		var payload struct {
			LatestID int64 `json:"LatestID"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			s.log.Warn("malformed PlayerDoneTurn payload", zap.Error(err))
			return
		}
		s.mgr.NotifyTurn(ev.PlayerID, ev.Turn, payload.LatestID)
		s.store.SetCurrentTurn(ev.Turn)

	case eventGameSwitched:
		if ev.GameID == "" {
			s.log.Warn("GameSwitched event carried no gameID")
			return
		}
		outgoingGameID := s.store.GameID()

		s.mgr.SwitchGame(ctx, ev.GameID, s.llmMap)
		if err := s.store.Switch(ctx, ev.GameID); err != nil {
			s.log.Error("failed to switch knowledge store", zap.Error(err))
		}

		if outgoingGameID != "" && outgoingGameID != ev.GameID {
			s.mu.Lock()
			dataDir, archiveDir := s.dataDir, s.archiveDir
			s.mu.Unlock()
			if archiveDir != "" {
				go func() {
					if err := knowledge.ArchiveGameFile(dataDir, archiveDir, outgoingGameID); err != nil {
						s.log.Warn("failed to archive finished game", zap.String("gameID", outgoingGameID), zap.Error(err))
					}
				}()
			}
		}

	case eventPlayerVictory:
		s.mu.Lock()
		s.victory = true
		s.mu.Unlock()
		s.mgr.AbortAll()
		s.resolve(ErrVictory)

	case eventDLLConnected:
		// handled via the lifecycle broker's reconnect transition; no
		// additional game-event payload to process here.
	}
}

// dispatchLifecycle logs each DLL (re)connect seen on the connector's
// lifecycle broker. It does not re-apply the pause set or re-request
// the load-screen-close sequence.
func (s *StrategistSession) dispatchLifecycle(ctx context.Context, lifecycle <-chan pubsub.Event[connector.LifecycleEvent]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-lifecycle:
			if !ok {
				return
			}
			if ev.Payload.State == connector.StateConnected {
				s.log.Info("DLL (re)connected")
			}
		}
	}
}
