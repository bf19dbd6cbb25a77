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
package wire

import (
	"bufio"
	"bytes"
	"io"
)

// FrameReader splits an arbitrarily-fragmented byte stream into
// newline-terminated JSON frames (spec §4.1 "Framing is
// newline-delimited JSON ... reads split the incoming byte stream on
// newline boundaries, tolerating arbitrary fragmentation").
//
// bufio.Reader is used instead of bufio.Scanner because Scanner's
// default token buffer caps line length; game-event payloads are
// unbounded in size.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r for newline-delimited reads.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 4096)}
}

// ReadFrame returns the next frame with its trailing 0x0A stripped.
// It returns io.EOF when the underlying stream is closed cleanly.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	data, err := f.r.ReadBytes('\n')
	if err != nil {
		if len(data) > 0 {
			// Partial final frame with no trailing newline; still a
			// usable read if the caller tolerates io.EOF alongside it.
			return bytes.TrimRight(data, "\n"), err
		}
		return nil, err
	}
	return bytes.TrimRight(data, "\n"), nil
}

// EncodeFrame appends the 0x0A frame terminator to a JSON payload.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	out = append(out, '\n')
	return out
}
