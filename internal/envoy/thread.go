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
package envoy

import (
	"context"
	"errors"

	"github.com/vox-deorum/voxd/internal/pubsub"
)

// ErrNotFound is returned when a thread lookup does not match any
// stored EnvoyThread.
var ErrNotFound = errors.New("envoy: thread not found")

// ThreadMetadata is the bookkeeping envelope around a thread's
// messages (spec §3.5).
type ThreadMetadata struct {
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
	Turn      int   `json:"turn"`
}

// EnvoyThread is a persisted chat session between a user and a
// dialogue agent, scoped to one game and one player (spec §3.5).
type EnvoyThread struct {
	ID        string         `json:"id"`
	AgentName string         `json:"agentName"`
	GameID    string         `json:"gameID"`
	PlayerID  int            `json:"playerID"`
	Messages  []Message      `json:"messages"`
	Metadata  ThreadMetadata `json:"metadata"`
}

// AppendMessage returns a copy of t with msg appended and Metadata's
// UpdatedAt/Turn advanced to match.
func (t EnvoyThread) AppendMessage(msg Message) EnvoyThread {
	result := t
	result.Messages = append(append([]Message(nil), t.Messages...), msg)
	result.Metadata.UpdatedAt = msg.Metadata.Datetime
	result.Metadata.Turn = msg.Metadata.Turn
	return result
}

// Store persists and indexes EnvoyThreads, one per (agentName, gameID,
// playerID) in the common case, and fans out change notifications so
// an HTTP/SSE layer can stream live transcripts to a UI.
type Store interface {
	Create(ctx context.Context, agentName, gameID string, playerID int) (EnvoyThread, error)
	Get(ctx context.Context, id string) (EnvoyThread, error)
	List(ctx context.Context, gameID string) ([]EnvoyThread, error)
	AppendMessage(ctx context.Context, id string, msg Message) (EnvoyThread, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context) <-chan pubsub.Event[EnvoyThread]
}
