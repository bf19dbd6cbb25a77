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

	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/wire"
)

// checkGameContext switches the underlying Store when gameID differs
// from the last one seen (spec §4.3 "Event ingestion" step 5).  An
// empty gameID is ignored: not every game event carries one.
func (p *Pipeline) checkGameContext(ctx context.Context, gameID string) {
	if gameID == "" || gameID == p.currentGameID {
		return
	}

	if err := p.store.Switch(ctx, gameID); err != nil {
		p.log.Warn("failed to switch knowledge store", zap.String("gameID", gameID), zap.Error(err))
		return
	}
	p.currentGameID = gameID
}

// persist routes a decoded event object to the appropriate write path
// based on the event's registered schema.
func (p *Pipeline) persist(ctx context.Context, ev wire.GameEvent, schema EventSchema, obj map[string]any) error {
	key := keyFromObject(schema, obj)
	if key == "" {
		key = ev.Event
	}

	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	turn := ev.Turn
	if schema.Mutable {
		_, err := p.store.StoreMutableKnowledge(ctx, schema.Table, MutableItem{
			Key:     key,
			Payload: obj,
		}, turn)
		return err
	}

	return p.store.StoreTimedKnowledge(ctx, schema.Table, TimedItem{
		Key:     key,
		Payload: payload,
	}, turn)
}
