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
package knowledge

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// ArchiveGameFile compresses the closed gameID's SQLite file from
// dataDir into archiveDir as a .db.zst, for long-term retention after
// a game ends (spec §6 "database.archive_dir"). The caller is
// responsible for ensuring the Store holding gameID has already been
// closed; archiving a file still open for writes would race WAL
// checkpoints.
func ArchiveGameFile(dataDir, archiveDir, gameID string) error {
	if archiveDir == "" {
		return nil
	}

	src := filepath.Join(dataDir, gameID+".db")
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("knowledge: open %s for archiving: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("knowledge: create archive dir: %w", err)
	}

	dst := filepath.Join(archiveDir, gameID+".db.zst")
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("knowledge: create %s: %w", dst, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("knowledge: start zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return fmt.Errorf("knowledge: compress %s: %w", src, err)
	}
	return enc.Close()
}
