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
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/pubsub"
	"github.com/vox-deorum/voxd/internal/wire"
)

// EventSchema declares how a registered game-event type's positional
// payload array maps to a named object, and the JSON schema that
// validates the result (spec §4.3 "Event ingestion").
type EventSchema struct {
	// Table is the TimedKnowledge or MutableKnowledge table the
	// decoded object is written into.
	Table string
	// Fields lists the positional payload's field names in order.
	Fields []string
	// Schema is a JSON-schema document (as a Go value, matching
	// gojsonschema.NewGoLoader's expectations) validating the decoded
	// object; nil skips validation.
	Schema any
	// KeyField names the decoded field that supplies the row's Key
	// (e.g. "PlayerID" for a per-player timed fact).
	KeyField string
	// Mutable selects storeMutableKnowledge semantics over
	// storeTimedKnowledge for this event type.
	Mutable bool
}

// Pipeline subscribes to a connector's game-event broker, validates
// and decodes each event against a registered schema, and persists it
// into the current Store (spec §4.3 "Event ingestion").
type Pipeline struct {
	store   *Store
	log     *zap.Logger
	schemas map[string]EventSchema

	currentGameID string
}

// NewPipeline constructs a Pipeline writing into store.
func NewPipeline(store *Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:   store,
		log:     logger,
		schemas: make(map[string]EventSchema),
	}
}

// Register adds or replaces the schema for eventType.
func (p *Pipeline) Register(eventType string, schema EventSchema) {
	p.schemas[eventType] = schema
}

// Run consumes events until ctx is cancelled or the channel closes.
func (p *Pipeline) Run(ctx context.Context, events <-chan pubsub.Event[wire.GameEvent]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.handle(ctx, ev.Payload)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev wire.GameEvent) {
	p.checkGameContext(ctx, ev.GameID)

	schema, ok := p.schemas[ev.Event]
	if !ok {
		p.log.Debug("dropping unregistered event type", zap.String("event", ev.Event))
		return
	}

	var positional []json.RawMessage
	if err := json.Unmarshal(ev.Payload, &positional); err != nil {
		p.log.Warn("event payload is not a positional array", zap.String("event", ev.Event), zap.Error(err))
		return
	}

	obj, err := decodePositional(schema.Fields, positional)
	if err != nil {
		p.log.Warn("failed to map positional payload", zap.String("event", ev.Event), zap.Error(err))
		return
	}

	if schema.Schema != nil {
		if err := validateObject(schema.Schema, obj); err != nil {
			p.log.Warn("event failed schema validation",
				zap.String("event", ev.Event),
				zap.Any("parsed", obj),
				zap.Any("raw", positional),
				zap.Error(err))
			return
		}
	}

	if err := p.persist(ctx, ev, schema, obj); err != nil {
		p.log.Warn("failed to persist event", zap.String("event", ev.Event), zap.Error(err))
	}

	p.checkGameContext(ctx, ev.GameID)
}

// decodePositional zips fields with positional values into a named
// object (spec §4.3 step 3).
func decodePositional(fields []string, values []json.RawMessage) (map[string]any, error) {
	if len(values) > len(fields) {
		return nil, fmt.Errorf("knowledge: payload has %d values but schema declares %d fields", len(values), len(fields))
	}

	obj := make(map[string]any, len(fields))
	for i, field := range fields {
		if i >= len(values) {
			obj[field] = nil
			continue
		}
		var v any
		if err := json.Unmarshal(values[i], &v); err != nil {
			return nil, fmt.Errorf("knowledge: decode field %s: %w", field, err)
		}
		obj[field] = v
	}
	return obj, nil
}

func validateObject(schema any, obj map[string]any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(obj))
	if err != nil {
		return fmt.Errorf("knowledge: schema validation error: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("knowledge: schema violations: %v", result.Errors())
	}
	return nil
}

func keyFromObject(schema EventSchema, obj map[string]any) string {
	if schema.KeyField == "" {
		return ""
	}
	v, ok := obj[schema.KeyField]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
