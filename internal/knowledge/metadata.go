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
	"context"
	"database/sql"
)

// writeMetadataLocked upserts a key/value pair into GameMetadata. The
// caller must hold s.mu.
func (s *Store) writeMetadataLocked(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO GameMetadata (Key, Value) VALUES (?, ?)
		ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value
	`, key, value)
	return err
}

// WriteMetadata upserts a key/value pair into the current game's
// metadata table (spec §4.3 "Database lifecycle" metadata keys such
// as turn/lastSave/lastSync).
func (s *Store) WriteMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNoStoreOpen
	}
	return s.writeMetadataLocked(ctx, key, value)
}

// ReadMetadata returns the value stored under key, or ("", false) if
// absent.
func (s *Store) ReadMetadata(ctx context.Context, key string) (string, bool, error) {
	db, err := s.requireDB()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRowContext(ctx, `SELECT Value FROM GameMetadata WHERE Key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
