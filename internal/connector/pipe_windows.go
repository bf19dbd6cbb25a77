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

//go:build windows

package connector

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Microsoft/go-winio"
)

// dialPipe connects to the DLL's named pipe. The game DLL only ever
// runs on Windows, so this is the real transport; pipeID names a pipe
// under \\.\pipe\.
func dialPipe(ctx context.Context, pipeID string, timeout time.Duration) (io.ReadWriteCloser, error) {
	path := fmt.Sprintf(`\\.\pipe\%s`, pipeID)
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := winio.DialPipeContext(dialCtx, path)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
