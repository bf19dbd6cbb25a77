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
package wire_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vox-deorum/voxd/internal/wire"
)

// chunkedReader replays buf in fixed-size pieces regardless of how
// much the caller asked to read, simulating arbitrary fragmentation
// of a byte stream across pipe reads.
type chunkedReader struct {
	buf       []byte
	chunkSize int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.buf) == 0 {
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(c.buf) {
		n = len(c.buf)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.buf[:n])
	c.buf = c.buf[n:]
	return n, nil
}

func readAllFrames(t *testing.T, r io.Reader) [][]byte {
	t.Helper()
	fr := wire.NewFrameReader(r)
	var frames [][]byte
	for {
		f, err := fr.ReadFrame()
		if len(f) > 0 {
			frames = append(frames, f)
		}
		if err != nil {
			break
		}
	}
	return frames
}

func TestFramingToleratesArbitraryChunking(t *testing.T) {
	messages := [][]byte{
		[]byte(`{"type":"response","id":1,"success":true}`),
		[]byte(`{"type":"game_event","event":"PlayerEndTurnInitiated","payload":[7]}`),
		[]byte(`{"type":"response","id":2,"success":false,"error":"not at war"}`),
	}
	var full bytes.Buffer
	for _, m := range messages {
		full.Write(wire.EncodeFrame(m))
	}

	baseline := readAllFrames(t, bytes.NewReader(full.Bytes()))
	require.Len(t, baseline, len(messages))

	for _, chunkSize := range []int{1, 2, 3, 7, 64, 4096} {
		got := readAllFrames(t, &chunkedReader{buf: append([]byte(nil), full.Bytes()...), chunkSize: chunkSize})
		require.Equal(t, baseline, got, "chunk size %d produced different frames", chunkSize)
	}
}
