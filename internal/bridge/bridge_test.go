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

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vox-deorum/voxd/internal/config"
	"github.com/vox-deorum/voxd/internal/connector"
	"github.com/vox-deorum/voxd/internal/wire"
)

func startFakeDLL(t *testing.T, pipeID string, handler func(*wire.Request) wire.Response) {
	t.Helper()
	path := filepath.Join(os.TempDir(), pipeID+".sock")
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(); _ = os.Remove(path) })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
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
			}()
		}
	}()
}

func newTestBridge(t *testing.T, handler func(*wire.Request) wire.Response) (*Bridge, http.Handler) {
	t.Helper()
	pipeID := "bridge-test-" + t.Name()
	startFakeDLL(t, pipeID, handler)

	conn := connector.New(config.NamedPipeConfig{
		ID:    pipeID,
		Retry: config.RetryConfig{BaseDelayMS: 10, MaxDelayMS: 20, RequestMS: 2000},
	}, nil)
	require.True(t, conn.Connect(context.Background()))
	t.Cleanup(conn.Disconnect)

	b := New(conn, config.BridgePauseSetConfig{SSEQueueHighWaterMark: 4}, nil)
	b.Start(context.Background())
	t.Cleanup(b.Stop)

	return b, b.Router(config.CORSConfig{Origin: []string{"*"}, Methods: []string{"GET", "POST", "DELETE"}})
}

func TestLuaCallEndpoint(t *testing.T) {
	_, router := newTestBridge(t, func(req *wire.Request) wire.Response {
		result, _ := json.Marshal("Mock Player")
		return wire.Response{Success: true, Result: result}
	})

	body, _ := json.Marshal(luaCallRequest{Function: "GetPlayerName"})
	req := httptest.NewRequest(http.MethodPost, "/lua/call", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp luaCallResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	var result string
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, "Mock Player", result)
}

func TestLuaBatchPreservesOrder(t *testing.T) {
	_, router := newTestBridge(t, func(req *wire.Request) wire.Response {
		var args wire.LuaCallArgs
		_ = json.Unmarshal(req.Raw, &args)
		result, _ := json.Marshal(args.Function)
		return wire.Response{Success: true, Result: result}
	})

	body, _ := json.Marshal(luaBatchRequest{Calls: []luaCallRequest{
		{Function: "First"}, {Function: "Second"}, {Function: "Third"},
	}})
	req := httptest.NewRequest(http.MethodPost, "/lua/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp luaBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)

	for i, want := range []string{"First", "Second", "Third"} {
		var got string
		require.NoError(t, json.Unmarshal(resp.Results[i].Result, &got))
		require.Equal(t, want, got)
	}
}

func TestExternalRegisterAndList(t *testing.T) {
	_, router := newTestBridge(t, func(req *wire.Request) wire.Response {
		return wire.Response{Success: true}
	})

	body, _ := json.Marshal(registerExternalRequest{Name: "onCityFounded", URL: "http://localhost:9/hook", Async: true, Timeout: 5000})
	req := httptest.NewRequest(http.MethodPost, "/external/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/external/functions", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	var listResp externalFunctionsResponse
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &listResp))
	require.Len(t, listResp.Functions, 1)
	require.Equal(t, "onCityFounded", listResp.Functions[0].Name)

	req3 := httptest.NewRequest(http.MethodDelete, "/external/register/onCityFounded", nil)
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, req3)
	require.Equal(t, http.StatusOK, rec3.Code)

	req4 := httptest.NewRequest(http.MethodGet, "/external/functions", nil)
	rec4 := httptest.NewRecorder()
	router.ServeHTTP(rec4, req4)
	var listResp2 externalFunctionsResponse
	require.NoError(t, json.Unmarshal(rec4.Body.Bytes(), &listResp2))
	require.Empty(t, listResp2.Functions)
}

func TestPausePlayerTracksSet(t *testing.T) {
	b, router := newTestBridge(t, func(req *wire.Request) wire.Response {
		return wire.Response{Success: true}
	})

	req := httptest.NewRequest(http.MethodPost, "/external/pause-player/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	b.pauseMu.Lock()
	_, paused := b.paused[3]
	b.pauseMu.Unlock()
	require.True(t, paused)

	req2 := httptest.NewRequest(http.MethodDelete, "/external/pause-player/3", nil)
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)

	b.pauseMu.Lock()
	_, stillPaused := b.paused[3]
	b.pauseMu.Unlock()
	require.False(t, stillPaused)
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestBridge(t, func(req *wire.Request) wire.Response {
		return wire.Response{Success: true}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.True(t, resp.DLLConnected)
}

func TestSSEHubDisconnectsSlowClient(t *testing.T) {
	hub := newSSEHub(2)
	ch := hub.subscribe()

	for i := 0; i < 5; i++ {
		hub.publish(wire.GameEvent{Event: "Tick"})
	}

	select {
	case _, ok := <-ch:
		if ok {
			// Drain remaining buffered events until the channel closes.
			for ok {
				_, ok = <-ch
			}
		}
	case <-time.After(time.Second):
		t.Fatal("expected channel to be closed after exceeding high-water mark")
	}
}
