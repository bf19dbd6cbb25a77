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
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"
)

// dialPipe connects to a Unix domain socket standing in for the game
// DLL's named pipe. The DLL itself is Windows-only; this lets the
// connector, its reconnect logic, and its tests run on the development
// and CI platforms this repo is built from.
func dialPipe(ctx context.Context, pipeID string, timeout time.Duration) (io.ReadWriteCloser, error) {
	path := socketPath(pipeID)
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "unix", path)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func socketPath(pipeID string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s.sock", pipeID))
}
