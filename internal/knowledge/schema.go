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
	"fmt"
	"strings"
)

// Kind identifies which of the spec's three record families a table
// belongs to (spec §3.3).
type Kind int

const (
	// KindPublic is static, ID-keyed, no turn/visibility columns.
	KindPublic Kind = iota
	// KindTimed is turn-stamped with one visibility flag per player.
	KindTimed
	// KindMutable extends Timed with Version/IsLatest/Changes.
	KindMutable
)

type tableSchema struct {
	Name    Kind
	Columns []string // caller-supplied domain columns, in addition to the base columns
}

// playerColumn names the visibility flag column for player i (spec
// §3.3: "Player0..PlayerN-1").
func playerColumn(i int) string {
	return fmt.Sprintf("Player%d", i)
}

func playerColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = playerColumn(i)
	}
	return cols
}

func createMetadataTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS GameMetadata (
			Key   TEXT PRIMARY KEY,
			Value TEXT NOT NULL
		)
	`)
	return err
}

// EnsurePublicKnowledgeTable creates table (if absent) with base
// columns {ID, <uniqueKeyColumn>, Payload} plus a unique index on
// uniqueKeyColumn (spec §3.3 PublicKnowledge: "synthetic ID key +
// unique secondary keys").
func (s *Store) EnsurePublicKnowledgeTable(ctx context.Context, table, uniqueKeyColumn string) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ID      INTEGER PRIMARY KEY AUTOINCREMENT,
			%s      TEXT NOT NULL,
			Payload TEXT NOT NULL
		)
	`, table, uniqueKeyColumn)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("knowledge: create table %s: %w", table, err)
	}

	idx := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, uniqueKeyColumn, table, uniqueKeyColumn)
	if _, err := db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("knowledge: create unique index on %s: %w", table, err)
	}

	s.registerSchema(table, KindPublic)
	return nil
}

// EnsureTimedKnowledgeTable creates table (if absent) with base
// columns {ID, Turn, Key, Payload, CreatedAt, Player0..PlayerN-1} and
// one index per player column (spec §3.3/§4.3).
func (s *Store) EnsureTimedKnowledgeTable(ctx context.Context, table string) error {
	return s.ensureTimedLike(ctx, table, false)
}

// EnsureMutableKnowledgeTable extends EnsureTimedKnowledgeTable with
// Version, IsLatest, Changes columns (spec §3.3 MutableKnowledge) and
// the (Turn,Key,IsLatest,Player{i}) index family.
func (s *Store) EnsureMutableKnowledgeTable(ctx context.Context, table string) error {
	return s.ensureTimedLike(ctx, table, true)
}

func (s *Store) ensureTimedLike(ctx context.Context, table string, mutable bool) error {
	db, err := s.requireDB()
	if err != nil {
		return err
	}

	cols := []string{
		"ID INTEGER PRIMARY KEY AUTOINCREMENT",
		"Turn INTEGER NOT NULL",
		"Key TEXT NOT NULL",
		"Payload TEXT NOT NULL",
		"CreatedAt INTEGER NOT NULL",
	}
	if mutable {
		cols = append(cols,
			"Version INTEGER NOT NULL DEFAULT 1",
			"IsLatest INTEGER NOT NULL DEFAULT 1",
			"Changes TEXT",
		)
	}
	for _, p := range playerColumns(s.maxMajorCivs) {
		cols = append(cols, p+" INTEGER NOT NULL DEFAULT 0")
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t"))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("knowledge: create table %s: %w", table, err)
	}

	for i := 0; i < s.maxMajorCivs; i++ {
		col := playerColumn(i)
		var idx string
		if mutable {
			idx = fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_turn_key_latest_%s ON %s(Turn, Key, IsLatest, %s)", table, col, table, col)
		} else {
			idx = fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_turn_%s ON %s(Turn, %s)", table, col, table, col)
		}
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("knowledge: create player index on %s: %w", table, err)
		}
	}

	if mutable {
		s.registerSchema(table, KindMutable)
	} else {
		s.registerSchema(table, KindTimed)
	}
	return nil
}

func (s *Store) registerSchema(table string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[table] = tableSchema{Name: kind}
}

// tableKind reports the registered Kind for table, defaulting to
// KindTimed if the table was never registered (callers only reach
// here for tables that were created through one of the Ensure*
// methods).
func (s *Store) tableKind(table string) Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.schemas[table]
	if !ok {
		return KindTimed
	}
	return ts.Name
}
