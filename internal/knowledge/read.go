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
	"encoding/json"
	"fmt"
)

// MutableRecord is a metadata-stripped read result for a
// MutableKnowledge row (spec §4.3 "Metadata stripping").
type MutableRecord struct {
	Key     string
	Turn    int
	Payload map[string]any
}

// Fetcher performs the RPC that populates a row expected to exist but
// currently missing, then returns once the store has been written to
// (spec §4.3 "getMutableKnowledge ... fetchIfMissing").
type Fetcher func(ctx context.Context) error

// GetMutableKnowledge returns the latest row for key; if absent and
// fetchIfMissing is non-nil, invokes it once and retries the read.
func (s *Store) GetMutableKnowledge(ctx context.Context, table, key string, fetchIfMissing Fetcher) (*MutableRecord, error) {
	db, err := s.requireDB()
	if err != nil {
		return nil, err
	}

	rec, found, err := queryMutableRecord(ctx, db, table, key)
	if err != nil {
		return nil, err
	}
	if found {
		return rec, nil
	}
	if fetchIfMissing == nil {
		return nil, nil
	}

	if err := fetchIfMissing(ctx); err != nil {
		return nil, fmt.Errorf("knowledge: fetchIfMissing for %s/%s: %w", table, key, err)
	}

	rec, found, err = queryMutableRecord(ctx, db, table, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec, nil
}

func queryMutableRecord(ctx context.Context, db *sql.DB, table, key string) (*MutableRecord, bool, error) {
	row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT Turn, Payload FROM %s WHERE Key = ? AND IsLatest = 1", table), key)

	var turn int
	var payloadStr string
	if err := row.Scan(&turn, &payloadStr); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("knowledge: query %s: %w", table, err)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
		return nil, false, fmt.Errorf("knowledge: decode payload from %s: %w", table, err)
	}
	return &MutableRecord{Key: key, Turn: turn, Payload: payload}, true, nil
}

// GetAllPublicKnowledge performs a full scan of table with metadata
// stripped (spec §4.3 "getAllPublicKnowledge").
func (s *Store) GetAllPublicKnowledge(ctx context.Context, table string) ([]map[string]any, error) {
	db, err := s.requireDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT Payload FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("knowledge: scan %s: %w", table, err)
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		var payloadStr string
		if err := rows.Scan(&payloadStr); err != nil {
			return nil, fmt.Errorf("knowledge: scan row from %s: %w", table, err)
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(payloadStr), &obj); err != nil {
			return nil, fmt.Errorf("knowledge: decode row from %s: %w", table, err)
		}
		results = append(results, obj)
	}
	return results, rows.Err()
}

// ReadPlayerKnowledge returns the row for key visibility-filtered for
// playerID: nil if the row exists but is invisible, invoking fetcher
// first if the row is entirely absent (spec §4.3
// "readPlayerKnowledge").
func (s *Store) ReadPlayerKnowledge(ctx context.Context, playerID int, table, key string, fetcher Fetcher) (map[string]any, error) {
	db, err := s.requireDB()
	if err != nil {
		return nil, err
	}

	kind := s.tableKind(table)

	rec, visible, found, err := queryPlayerVisibleRow(ctx, db, table, key, playerID, kind)
	if err != nil {
		return nil, err
	}
	if !found && fetcher != nil {
		if err := fetcher(ctx); err != nil {
			return nil, fmt.Errorf("knowledge: fetch for %s/%s: %w", table, key, err)
		}
		rec, visible, found, err = queryPlayerVisibleRow(ctx, db, table, key, playerID, kind)
		if err != nil {
			return nil, err
		}
	}
	if !found || !visible {
		return nil, nil
	}
	return rec, nil
}

// queryPlayerVisibleRow resolves the current row for key: for
// MutableKnowledge tables (which keep one row per version) that means
// the IsLatest=1 row, matching queryMutableRecord; for TimedKnowledge
// tables (which accumulate one row per write, no IsLatest column)
// that means the row with the highest Turn. Without this resolution a
// key with more than one stored row — the normal case both table
// kinds exist to support — would return whichever row SQLite's scan
// happened to visit first, not the current one.
func queryPlayerVisibleRow(ctx context.Context, db *sql.DB, table, key string, playerID int, kind Kind) (map[string]any, bool, bool, error) {
	col := playerColumn(playerID)

	var query string
	switch kind {
	case KindMutable:
		query = fmt.Sprintf("SELECT Payload, %s FROM %s WHERE Key = ? AND IsLatest = 1", col, table)
	default:
		query = fmt.Sprintf("SELECT Payload, %s FROM %s WHERE Key = ? ORDER BY Turn DESC LIMIT 1", col, table)
	}
	row := db.QueryRowContext(ctx, query, key)

	var payloadStr string
	var visFlag int
	if err := row.Scan(&payloadStr, &visFlag); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, false, nil
		}
		return nil, false, false, fmt.Errorf("knowledge: query %s: %w", table, err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(payloadStr), &obj); err != nil {
		return nil, false, true, fmt.Errorf("knowledge: decode row from %s: %w", table, err)
	}
	return obj, visFlag != 0, true, nil
}
