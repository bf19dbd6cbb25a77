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
package knowledge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vox-deorum/voxd/internal/pubsub"
	"github.com/vox-deorum/voxd/internal/wire"
)

func TestPipelineDecodesPositionalPayload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "TurnEvents"))

	pipeline := NewPipeline(s, nil)
	pipeline.currentGameID = "test-game"
	pipeline.Register("PlayerEndTurnInitiated", EventSchema{
		Table:    "TurnEvents",
		Fields:   []string{"PlayerID"},
		KeyField: "PlayerID",
	})

	payload, _ := json.Marshal([]int{7})
	pipeline.handle(ctx, wire.GameEvent{
		Type:    wire.TypeGameEvent,
		Event:   "PlayerEndTurnInitiated",
		Payload: payload,
		Turn:    3,
	})

	db, err := s.requireDB()
	require.NoError(t, err)
	var payloadStr string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT Payload FROM TurnEvents WHERE Key = ?", "7").Scan(&payloadStr))

	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(payloadStr), &obj))
	require.Equal(t, float64(7), obj["PlayerID"])
}

func TestPipelineDropsUnregisteredEventType(t *testing.T) {
	s := newTestStore(t)
	pipeline := NewPipeline(s, nil)
	pipeline.currentGameID = "test-game"

	// Should log and return without error or panic; no table needed
	// since nothing registered for this type.
	pipeline.handle(context.Background(), wire.GameEvent{
		Event:   "SomeUnknownEvent",
		Payload: json.RawMessage(`[]`),
	})
}

func TestPipelineSwitchesStoreOnGameIDChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "TurnEvents"))

	pipeline := NewPipeline(s, nil)
	pipeline.currentGameID = "test-game"
	pipeline.Register("PlayerEndTurnInitiated", EventSchema{
		Table:    "TurnEvents",
		Fields:   []string{"PlayerID"},
		KeyField: "PlayerID",
	})

	payload, _ := json.Marshal([]int{1})
	pipeline.handle(ctx, wire.GameEvent{
		Event:   "PlayerEndTurnInitiated",
		Payload: payload,
		GameID:  "new-game",
		Turn:    1,
	})

	require.Equal(t, "new-game", s.GameID())
}

func TestPipelineRunConsumesBrokerEvents(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "TurnEvents"))

	pipeline := NewPipeline(s, nil)
	pipeline.currentGameID = "test-game"
	pipeline.Register("PlayerEndTurnInitiated", EventSchema{
		Table:    "TurnEvents",
		Fields:   []string{"PlayerID"},
		KeyField: "PlayerID",
	})

	broker := pubsub.NewBroker[wire.GameEvent]()
	ch := broker.Subscribe(ctx)

	go pipeline.Run(ctx, ch)

	payload, _ := json.Marshal([]int{2})
	broker.Publish(pubsub.CreatedEvent, wire.GameEvent{
		Event:   "PlayerEndTurnInitiated",
		Payload: payload,
		Turn:    1,
	})

	require.Eventually(t, func() bool {
		db, err := s.requireDB()
		if err != nil {
			return false
		}
		var count int
		_ = db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM TurnEvents WHERE Key = ?", "2").Scan(&count)
		return count == 1
	}, time.Second, 5*time.Millisecond)
}
