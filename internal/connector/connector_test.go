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

//go:build !windows

package connector

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/wire"
)

// fakeDLL is a minimal stand-in for the game DLL's named-pipe server,
// used to exercise the connector's framing and correlation without a
// real Civilization V process.
type fakeDLL struct {
	listener net.Listener
}

func startFakeDLL(t *testing.T, pipeID string, handler func(*wire.Request) wire.Response) *fakeDLL {
	t.Helper()
	path := socketPath(pipeID)
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	require.NoError(t, err)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveFakeConn(conn, handler)
		}
	}()

	t.Cleanup(func() {
		_ = l.Close()
		_ = os.Remove(path)
	})

	return &fakeDLL{listener: l}
}

func serveFakeConn(conn net.Conn, handler func(*wire.Request) wire.Response) {
	defer conn.Close()
	fr := wire.NewFrameReader(conn)
	for {
		frame, err := fr.ReadFrame()
		if len(frame) > 0 {
			var req wire.Request
			if jsonErr := json.Unmarshal(frame, &req); jsonErr == nil {
				req.Raw = frame
				resp := handler(&req)
				resp.Type = wire.TypeResponse
				resp.ID = req.ID
				out, _ := json.Marshal(resp)
				if _, werr := conn.Write(wire.EncodeFrame(out)); werr != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{BaseDelayMS: 10, MaxDelayMS: 50, RequestMS: 2000}
}

func TestConnectSendEcho(t *testing.T) {
	pipeID := "test-echo"
	startFakeDLL(t, pipeID, func(req *wire.Request) wire.Response {
		var args wire.LuaCallArgs
		_ = json.Unmarshal(req.Raw, &args)
		result, _ := json.Marshal("Mock Player")
		return wire.Response{Success: true, Result: result}
	})

	c := New(config.NamedPipeConfig{ID: pipeID, Retry: testRetryConfig()}, nil)
	ok := c.Connect(context.Background())
	require.True(t, ok)
	defer c.Disconnect()

	resp, err := c.Send(context.Background(), wire.TypeLuaCall, wire.LuaCallArgs{Function: "GetPlayerName", Args: nil})
	require.NoError(t, err)
	require.True(t, resp.Success)

	var result string
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, "Mock Player", result)
}

func TestReconnectCounterIncreasesOnInvalidPipe(t *testing.T) {
	c := New(config.NamedPipeConfig{
		ID:    "invalid-reconnect-test",
		Retry: config.RetryConfig{BaseDelayMS: 10, MaxDelayMS: 20, RequestMS: 50},
	}, nil)

	ok := c.Connect(context.Background())
	require.False(t, ok)

	require.Eventually(t, func() bool {
		return c.GetStats().ReconnectAttempts > 0
	}, time.Second, 10*time.Millisecond)

	c.Disconnect()
	attemptsAtStop := c.GetStats().ReconnectAttempts
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, attemptsAtStop, c.GetStats().ReconnectAttempts)
}

func TestDisconnectEmitsLifecycleEventExactlyOnce(t *testing.T) {
	pipeID := "test-disconnect"
	startFakeDLL(t, pipeID, func(req *wire.Request) wire.Response {
		return wire.Response{Success: true}
	})

	c := New(config.NamedPipeConfig{ID: pipeID, Retry: testRetryConfig()}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle := c.Lifecycle(ctx)
	require.True(t, c.Connect(context.Background()))
	require.Equal(t, StateConnected, (<-lifecycle).Payload.State)

	c.Disconnect()
	require.Equal(t, StateDisconnected, (<-lifecycle).Payload.State)
	require.False(t, c.IsConnected())

	select {
	case ev := <-lifecycle:
		t.Fatalf("unexpected second lifecycle event after Disconnect: %v", ev.Payload.State)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPendingRequestsDrainToZeroWhenIdle(t *testing.T) {
	pipeID := "test-idle"
	startFakeDLL(t, pipeID, func(req *wire.Request) wire.Response {
		return wire.Response{Success: true}
	})

	c := New(config.NamedPipeConfig{ID: pipeID, Retry: testRetryConfig()}, nil)
	require.True(t, c.Connect(context.Background()))
	defer c.Disconnect()

	_, err := c.Send(context.Background(), wire.TypeLuaCall, wire.LuaCallArgs{Function: "Noop"})
	require.NoError(t, err)

	require.Equal(t, 0, c.GetStats().PendingRequests)
}
