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
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/vox-deorum/voxd/internal/wire"
)

// sseHub fans every game event out to independent per-client queues
// (spec §4.2 "Event fan-out"). A client whose queue is full when a new
// event arrives is disconnected rather than allowed to block the
// publisher or grow without bound.
type sseHub struct {
	mu        sync.Mutex
	subs      map[chan wire.GameEvent]struct{}
	highWater int
}

func newSSEHub(highWater int) *sseHub {
	return &sseHub{
		subs:      make(map[chan wire.GameEvent]struct{}),
		highWater: highWater,
	}
}

func (h *sseHub) subscribe() chan wire.GameEvent {
	ch := make(chan wire.GameEvent, h.highWater)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *sseHub) unsubscribe(ch chan wire.GameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *sseHub) publish(ev wire.GameEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Queue exceeded the high-water mark; disconnect this
			// client rather than let it stall every other subscriber.
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *sseHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = make(map[chan wire.GameEvent]struct{})
}

// handleEvents serves GET /events as a Server-Sent-Events stream.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.sse.subscribe()
	defer b.sse.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				b.log.Warn("failed to marshal game event for SSE")
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
