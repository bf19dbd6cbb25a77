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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vox-deorum/voxd/internal/pubsub"
)

// memoryStore is a process-local Store. EnvoyThreads are small and
// bounded by the number of concurrently played games, so no database
// backing is required; VoxContext holds one per orchestrator instance.
type memoryStore struct {
	mu      sync.RWMutex
	threads map[string]EnvoyThread
	broker  *pubsub.Broker[EnvoyThread]
	clock   func() int64
}

// NewMemoryStore creates an empty Store. clock supplies CreatedAt
// timestamps and defaults to a monotonically increasing counter when
// nil, keeping the store free of wall-clock reads so it stays
// deterministic in tests.
func NewMemoryStore(clock func() int64) Store {
	if clock == nil {
		var counter int64
		clock = func() int64 { return atomic.AddInt64(&counter, 1) }
	}
	return &memoryStore{
		threads: make(map[string]EnvoyThread),
		broker:  pubsub.NewBroker[EnvoyThread](),
		clock:   clock,
	}
}

func (s *memoryStore) Create(ctx context.Context, agentName, gameID string, playerID int) (EnvoyThread, error) {
	now := s.clock()
	t := EnvoyThread{
		ID:        uuid.NewString(),
		AgentName: agentName,
		GameID:    gameID,
		PlayerID:  playerID,
		Messages:  nil,
		Metadata:  ThreadMetadata{CreatedAt: now, UpdatedAt: now},
	}

	s.mu.Lock()
	s.threads[t.ID] = t
	s.mu.Unlock()

	s.broker.Publish(pubsub.CreatedEvent, t)
	return t, nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (EnvoyThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return EnvoyThread{}, ErrNotFound
	}
	return t, nil
}

func (s *memoryStore) List(ctx context.Context, gameID string) ([]EnvoyThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EnvoyThread
	for _, t := range s.threads {
		if gameID == "" || t.GameID == gameID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) AppendMessage(ctx context.Context, id string, msg Message) (EnvoyThread, error) {
	s.mu.Lock()
	t, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return EnvoyThread{}, ErrNotFound
	}
	t = t.AppendMessage(msg)
	s.threads[id] = t
	s.mu.Unlock()

	s.broker.Publish(pubsub.UpdatedEvent, t)
	return t, nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.threads[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.threads, id)
	s.mu.Unlock()

	s.broker.Publish(pubsub.DeletedEvent, t)
	return nil
}

func (s *memoryStore) Subscribe(ctx context.Context) <-chan pubsub.Event[EnvoyThread] {
	return s.broker.Subscribe(ctx)
}
