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

// Package connector implements the DLL Connector (spec §4.1): the
// named-pipe client that frames and correlates requests/responses with
// the game DLL, and fans out its fire-and-forget game events.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/pubsub"
	"github.com/vox-deorum/voxd/internal/wire"
)

// ErrDisconnected is returned to every pending request and to any new
// Send call issued while the pipe is not connected.
var ErrDisconnected = errors.New("connector: disconnected")

// ErrRequestTimeout is returned when a single request's deadline
// elapses without a matching response (spec §7 "Timeout").
var ErrRequestTimeout = errors.New("connector: request timed out")

// ConnectionState is broadcast over the Lifecycle channel, separate
// from the game_event payloads on Events, so callers can observe
// connect/disconnect without polling GetStats.
type ConnectionState int

const (
	// StateConnected fires once a pipe dial succeeds.
	StateConnected ConnectionState = iota
	// StateDisconnected fires whenever the pipe drops, for any reason.
	StateDisconnected
)

// LifecycleEvent is published on the lifecycle broker whenever the
// connector transitions between connected and disconnected.
type LifecycleEvent struct {
	State ConnectionState
}

// Stats mirrors spec §4.1 getStats().
type Stats struct {
	Connected         bool
	PendingRequests   int
	ReconnectAttempts int
}

type pendingEntry struct {
	resp chan *wire.Response
}

// Connector is the DLL Connector client. One instance owns exactly one
// named-pipe connection; all writes to it are serialized through an
// internal queue (spec §5 "Shared-resource policy").
type Connector struct {
	pipeID string
	retry  config.RetryConfig
	log    *zap.Logger

	events    *pubsub.Broker[wire.GameEvent]
	lifecycle *pubsub.Broker[LifecycleEvent]

	connMu  sync.Mutex
	conn    io.ReadWriteCloser
	writeMu sync.Mutex // serializes frame writes onto conn

	pendingMu sync.Mutex
	pending   map[int64]pendingEntry
	nextID    int64

	connecting   atomic.Bool
	connectOnce  chan struct{} // closed when an in-flight Connect resolves
	connectMu    sync.Mutex
	connectedVal atomic.Bool
	reconnects   atomic.Int64

	stopCh    chan struct{}
	stopped   atomic.Bool
	wg        conc.WaitGroup
	connEpoch atomic.Int64 // bumped on every new conn, lets stale loops exit cleanly
}

// New creates a Connector bound to the named pipe identified by
// cfg.NamedPipe.ID. Call Connect to dial it.
func New(cfg config.NamedPipeConfig, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		pipeID:    cfg.ID,
		retry:     cfg.Retry,
		log:       logger,
		events:    pubsub.NewBroker[wire.GameEvent](),
		lifecycle: pubsub.NewBroker[LifecycleEvent](),
		pending:   make(map[int64]pendingEntry),
		stopCh:    make(chan struct{}),
	}
}

// Events returns a channel of fire-and-forget game_event messages
// (spec §4.1 "gameEvent observable").
func (c *Connector) Events(ctx context.Context) <-chan pubsub.Event[wire.GameEvent] {
	return c.events.Subscribe(ctx)
}

// Lifecycle returns a channel of connect/disconnect transitions.
func (c *Connector) Lifecycle(ctx context.Context) <-chan pubsub.Event[LifecycleEvent] {
	return c.lifecycle.Subscribe(ctx)
}

// IsConnected reports the connector's current connection state.
func (c *Connector) IsConnected() bool {
	return c.connectedVal.Load()
}

// GetStats mirrors spec §4.1 getStats().
func (c *Connector) GetStats() Stats {
	c.pendingMu.Lock()
	n := len(c.pending)
	c.pendingMu.Unlock()
	return Stats{
		Connected:         c.IsConnected(),
		PendingRequests:   n,
		ReconnectAttempts: int(c.reconnects.Load()),
	}
}

// Connect dials the pipe. It is idempotent: a second call while
// already connected returns true immediately, and concurrent callers
// during an in-flight attempt share its result rather than dialing
// twice (spec §4.1 "Connect protocol").
//
// On failure it returns false and schedules a reconnect loop with
// exponential backoff that keeps retrying until Disconnect is called
// or a connection succeeds; it does not return an error for that case,
// since retrying is the connector's own responsibility, not the
// caller's (spec §4.1).
func (c *Connector) Connect(ctx context.Context) bool {
	if c.IsConnected() {
		return true
	}

	c.connectMu.Lock()
	if c.connecting.Load() {
		wait := c.connectOnce
		c.connectMu.Unlock()
		if wait != nil {
			<-wait
		}
		return c.IsConnected()
	}
	c.connecting.Store(true)
	done := make(chan struct{})
	c.connectOnce = done
	c.connectMu.Unlock()

	defer func() {
		c.connecting.Store(false)
		close(done)
	}()

	c.stopped.Store(false)
	c.stopCh = make(chan struct{})

	if err := c.dialAndStart(ctx); err != nil {
		c.log.Warn("connect failed, scheduling reconnect", zap.String("pipe", c.pipeID), zap.Error(err))
		c.wg.Go(func() { c.reconnectLoop() })
		return false
	}
	return true
}

// Disconnect closes the pipe and stops any in-flight reconnect loop.
// It is idempotent.
func (c *Connector) Disconnect() {
	if c.stopped.Swap(true) {
		return
	}
	close(c.stopCh)

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	c.transitionDisconnected(ErrDisconnected)
	c.wg.Wait()
}

func (c *Connector) dialAndStart(ctx context.Context) error {
	timeout := time.Duration(c.retry.RequestMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	conn, err := dialPipe(ctx, c.pipeID, timeout)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	epoch := c.connEpoch.Add(1)
	c.connectedVal.Store(true)
	c.reconnects.Store(0)
	c.lifecycle.Publish(pubsub.CreatedEvent, LifecycleEvent{State: StateConnected})

	c.wg.Go(func() { c.readLoop(conn, epoch) })
	return nil
}

// reconnectLoop retries dialAndStart with exponential backoff until it
// succeeds or Disconnect is called.
func (c *Connector) reconnectLoop() {
	base := time.Duration(c.retry.BaseDelayMS) * time.Millisecond
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxDelay := time.Duration(c.retry.MaxDelayMS) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := base
	for {
		select {
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		c.reconnects.Add(1)

		ctx, cancel := context.WithTimeout(context.Background(), base+delay)
		err := c.dialAndStart(ctx)
		cancel()
		if err == nil {
			return
		}

		c.log.Debug("reconnect attempt failed", zap.String("pipe", c.pipeID), zap.Error(err))
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Send issues a request and waits for its matching response (spec
// §4.1 "Request/response correlation"). msgType is one of the
// wire.Type* constants; args's fields are spread as top-level siblings
// of "type"/"id" on the wire, per wire.EncodeRequest.
func (c *Connector) Send(ctx context.Context, msgType string, args interface{}) (*wire.Response, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil, ErrDisconnected
	}

	id := atomic.AddInt64(&c.nextID, 1)
	frame, err := wire.EncodeRequest(msgType, id, args)
	if err != nil {
		return nil, fmt.Errorf("connector: marshal request: %w", err)
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[id] = pendingEntry{resp: respCh}
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeFrame(conn, frame); err != nil {
		return nil, fmt.Errorf("connector: write failed: %w", err)
	}

	deadline := time.Duration(c.retry.RequestMS) * time.Millisecond
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrDisconnected
		}
		return resp, nil
	}
}

func (c *Connector) writeFrame(conn io.ReadWriteCloser, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := conn.Write(wire.EncodeFrame(frame))
	return err
}

// readLoop parses newline-delimited frames off conn until it closes or
// errors, dispatching responses to their waiter and events to the
// broker. epoch guards against a stale loop (from a pipe that has
// since been replaced by a fresh reconnect) acting on the live state.
func (c *Connector) readLoop(conn io.ReadWriteCloser, epoch int64) {
	fr := wire.NewFrameReader(conn)
	for {
		frame, err := fr.ReadFrame()
		if len(frame) > 0 {
			c.dispatch(frame)
		}
		if err != nil {
			if c.connEpoch.Load() == epoch {
				c.log.Info("connector pipe closed", zap.String("pipe", c.pipeID), zap.Error(err))
				c.transitionDisconnected(err)
				if !c.stopped.Load() {
					c.wg.Go(func() { c.reconnectLoop() })
				}
			}
			return
		}
	}
}

func (c *Connector) dispatch(frame []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.log.Warn("dropping malformed frame", zap.ByteString("frame", frame), zap.Error(err))
		return
	}

	switch env.Type {
	case wire.TypeResponse:
		var resp wire.Response
		if err := json.Unmarshal(frame, &resp); err != nil {
			c.log.Warn("dropping malformed response frame", zap.Error(err))
			return
		}
		c.pendingMu.Lock()
		entry, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			c.log.Warn("dropping response for unknown request id", zap.Int64("id", resp.ID))
			return
		}
		entry.resp <- &resp

	case wire.TypeGameEvent:
		var ev wire.GameEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			c.log.Warn("dropping malformed game_event frame", zap.Error(err))
			return
		}
		c.events.Publish(pubsub.CreatedEvent, ev)

	default:
		c.log.Warn("dropping frame of unrecognized type", zap.String("type", env.Type))
	}
}

// transitionDisconnected rejects every pending request with err,
// flips connected state, and emits a disconnected lifecycle event.
func (c *Connector) transitionDisconnected(err error) {
	if !c.connectedVal.Swap(false) {
		return
	}

	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int64]pendingEntry)
	c.pendingMu.Unlock()

	for _, entry := range pending {
		close(entry.resp)
	}

	c.lifecycle.Publish(pubsub.DeletedEvent, LifecycleEvent{State: StateDisconnected})
}
