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
	"time"
)

// TimedItem is one row of a storeTimedKnowledgeBatch call.
type TimedItem struct {
	Key        string
	Payload    json.RawMessage
	Visibility map[string]int
}

// StoreTimedKnowledge inserts a new row with the current turn and
// visibility flags (spec §4.3 "Write paths").
func (s *Store) StoreTimedKnowledge(ctx context.Context, table string, item TimedItem, turn int) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}
	return insertTimedRow(ctx, db, table, item, turn, s.maxMajorCivs)
}

// StoreTimedKnowledgeBatch writes items in one transaction.
func (s *Store) StoreTimedKnowledgeBatch(ctx context.Context, table string, items []TimedItem, turn int) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("knowledge: begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := insertTimedRow(ctx, tx, table, item, turn, s.maxMajorCivs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTimedRow(ctx context.Context, db execer, table string, item TimedItem, turn, maxMajorCivs int) error {
	cols := []string{"Turn", "Key", "Payload", "CreatedAt"}
	vals := []any{turn, item.Key, string(item.Payload), time.Now().Unix()}

	for i := 0; i < maxMajorCivs; i++ {
		cols = append(cols, playerColumn(i))
		vals = append(vals, visibilityFlag(item.Visibility, i))
	}

	stmt := buildInsert(table, cols)
	_, err := db.ExecContext(ctx, stmt, vals...)
	if err != nil {
		return fmt.Errorf("knowledge: insert into %s: %w", table, err)
	}
	return nil
}

func visibilityFlag(visibility map[string]int, i int) int {
	if visibility == nil {
		return 1 // default: visible to all, spec's own tools default to full visibility absent a supplied map
	}
	v, ok := visibility[playerColumn(i)]
	if !ok {
		return 0
	}
	return v
}

func buildInsert(table string, cols []string) string {
	placeholders := ""
	colList := ""
	for i, c := range cols {
		if i > 0 {
			placeholders += ", "
			colList += ", "
		}
		placeholders += "?"
		colList += c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, colList, placeholders)
}

// MutableItem is one row of a storeMutableKnowledgeBatch call.
type MutableItem struct {
	Key          string
	Payload      map[string]any
	Visibility   map[string]int
	IgnoreFields []string
}

// StoreMutableKnowledge implements the read-diff-insert cycle of spec
// §4.3 "storeMutableKnowledge". Returns (wrote bool, err error).
func (s *Store) StoreMutableKnowledge(ctx context.Context, table string, item MutableItem, turn int) (bool, error) {
	db, err := s.requireDB()
	if err != nil {
		return false, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("knowledge: begin: %w", err)
	}
	defer tx.Rollback()

	wrote, err := storeMutableRow(ctx, tx, table, item, turn, s.maxMajorCivs)
	if err != nil {
		return false, err
	}
	if !wrote {
		return false, nil
	}
	return true, tx.Commit()
}

// StoreMutableKnowledgeBatch applies the same read-diff-insert cycle
// to each item, all in one transaction (spec §4.3
// "storeMutableKnowledgeBatch").
func (s *Store) StoreMutableKnowledgeBatch(ctx context.Context, table string, items []MutableItem, turn int) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("knowledge: begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := storeMutableRow(ctx, tx, table, item, turn, s.maxMajorCivs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func storeMutableRow(ctx context.Context, tx *sql.Tx, table string, item MutableItem, turn, maxMajorCivs int) (bool, error) {
	prev, prevID, prevVersion, found, err := queryLatestMutable(ctx, tx, table, item.Key)
	if err != nil {
		return false, err
	}

	diff := diffFields(prev, item.Payload, item.IgnoreFields)
	if found && len(diff) == 0 {
		return false, nil
	}

	version := 1
	if found {
		version = prevVersion + 1
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET IsLatest = 0 WHERE ID = ?", table), prevID); err != nil {
			return false, fmt.Errorf("knowledge: demote prior version in %s: %w", table, err)
		}
	}

	payloadJSON, err := json.Marshal(item.Payload)
	if err != nil {
		return false, fmt.Errorf("knowledge: marshal payload: %w", err)
	}
	changesJSON, err := json.Marshal(diff)
	if err != nil {
		return false, fmt.Errorf("knowledge: marshal changes: %w", err)
	}

	cols := []string{"Turn", "Key", "Payload", "CreatedAt", "Version", "IsLatest", "Changes"}
	vals := []any{turn, item.Key, string(payloadJSON), time.Now().Unix(), version, 1, string(changesJSON)}
	for i := 0; i < maxMajorCivs; i++ {
		cols = append(cols, playerColumn(i))
		vals = append(vals, visibilityFlag(item.Visibility, i))
	}

	if _, err := tx.ExecContext(ctx, buildInsert(table, cols), vals...); err != nil {
		return false, fmt.Errorf("knowledge: insert into %s: %w", table, err)
	}
	return true, nil
}

// queryLatestMutable returns the decoded Payload of the current
// IsLatest=true row for key, along with its ID and Version.
func queryLatestMutable(ctx context.Context, tx *sql.Tx, table, key string) (payload map[string]any, id int64, version int, found bool, err error) {
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT ID, Payload, Version FROM %s WHERE Key = ? AND IsLatest = 1", table), key)

	var payloadStr string
	if scanErr := row.Scan(&id, &payloadStr, &version); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, 0, 0, false, nil
		}
		return nil, 0, 0, false, fmt.Errorf("knowledge: query latest from %s: %w", table, scanErr)
	}

	if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
		return nil, 0, 0, false, fmt.Errorf("knowledge: decode prior payload: %w", err)
	}
	return payload, id, version, true, nil
}

// diffFields computes a field-wise diff of prev (nil if no prior row)
// against next, skipping ignoreFields, returning a list of
// {field, from, to} change records (spec §4.3 step 2).
func diffFields(prev map[string]any, next map[string]any, ignoreFields []string) []map[string]any {
	ignore := make(map[string]bool, len(ignoreFields))
	for _, f := range ignoreFields {
		ignore[f] = true
	}

	var changes []map[string]any
	seen := make(map[string]bool)

	for field, newVal := range next {
		if ignore[field] {
			continue
		}
		seen[field] = true
		oldVal, existed := prev[field]
		if !existed || !jsonEqual(oldVal, newVal) {
			changes = append(changes, map[string]any{"field": field, "from": oldVal, "to": newVal})
		}
	}
	for field, oldVal := range prev {
		if ignore[field] || seen[field] {
			continue
		}
		changes = append(changes, map[string]any{"field": field, "from": oldVal, "to": nil})
	}
	return changes
}

func jsonEqual(a, b any) bool {
	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(aj) == string(bj)
}

// StorePublicKnowledge upserts on the table's unique index (spec §4.3
// "storePublicKnowledge").
func (s *Store) StorePublicKnowledge(ctx context.Context, table, uniqueKeyColumn, uniqueKeyValue string, data json.RawMessage) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (%s, Payload) VALUES (?, ?)
		ON CONFLICT(%s) DO UPDATE SET Payload = excluded.Payload
	`, table, uniqueKeyColumn, uniqueKeyColumn)
	if _, err := db.ExecContext(ctx, stmt, uniqueKeyValue, string(data)); err != nil {
		return fmt.Errorf("knowledge: upsert into %s: %w", table, err)
	}
	return nil
}
