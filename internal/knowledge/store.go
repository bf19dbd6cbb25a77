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

// Package knowledge implements the Knowledge Store & Event Pipeline
// (spec §4.3): one SQLite file per gameID holding PublicKnowledge,
// TimedKnowledge, and MutableKnowledge tables, plus the ingestion
// pipeline that turns connector game events into stored rows.
package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/vox-deorum/voxd/internal/sqlitedriver"
)

// ErrNoStoreOpen is returned by operations that require an open store
// when none is open yet.
var ErrNoStoreOpen = errors.New("knowledge: no store open for current game")

// Store owns the single active per-gameID SQLite database for an
// orchestrator instance (spec §5 "SQLite store is a per-process
// singleton per active gameID"). Only one gameID is open at a time;
// switching requires closing the current store first.
type Store struct {
	mu           sync.RWMutex
	db           *sql.DB
	gameID       string
	dataDir      string
	maxMajorCivs int
	log          *zap.Logger

	schemas map[string]tableSchema // registered table name -> schema kind/columns

	autoSaveInterval time.Duration
	autoSaveCron     *cron.Cron

	currentTurn atomic.Int64
}

// NewStore creates an unopened Store. dataDir is the directory holding
// per-game SQLite files (spec §6 "data/{gameID}.db"); maxMajorCivs
// sizes the PlayerN visibility columns on Timed/MutableKnowledge
// tables.
func NewStore(dataDir string, maxMajorCivs int, autoSaveInterval time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dataDir:          dataDir,
		maxMajorCivs:     maxMajorCivs,
		log:              logger,
		schemas:          make(map[string]tableSchema),
		autoSaveInterval: autoSaveInterval,
	}
}

// GameID returns the gameID of the currently open store, or "" if none
// is open.
func (s *Store) GameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameID
}

// Initialize opens (creating if necessary) the SQLite file for gameID
// and ensures its schema exists. Re-entry on the same gameID is a
// no-op (spec §4.3 "Database lifecycle").
func (s *Store) Initialize(ctx context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil && s.gameID == gameID {
		return nil
	}
	if s.db != nil {
		return fmt.Errorf("knowledge: store already open for game %q; close it before opening %q", s.gameID, gameID)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("knowledge: create data dir: %w", err)
	}

	path := filepath.Join(s.dataDir, gameID+".db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("knowledge: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite connections are not safe for concurrent writers

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return fmt.Errorf("knowledge: set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return fmt.Errorf("knowledge: set journal_mode: %w", err)
	}

	if err := createMetadataTable(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.gameID = gameID

	if err := s.writeMetadataLocked(ctx, "gameId", gameID); err != nil {
		_ = db.Close()
		s.db = nil
		s.gameID = ""
		return err
	}
	if err := s.writeMetadataLocked(ctx, "lastSync", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("failed to record lastSync on open", zap.Error(err))
	}

	s.log.Info("knowledge store opened", zap.String("gameID", gameID), zap.String("path", path))

	s.startAutoSaveLocked()
	return nil
}

// Close stops the auto-save ticker, performs a final metadata save,
// and closes the underlying database. It is safe to call when no
// store is open.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(ctx)
}

func (s *Store) closeLocked(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	s.stopAutoSaveLocked()

	_ = s.writeMetadataLocked(ctx, "lastSave", time.Now().UTC().Format(time.RFC3339))

	err := s.db.Close()
	s.db = nil
	gameID := s.gameID
	s.gameID = ""
	s.log.Info("knowledge store closed", zap.String("gameID", gameID))
	return err
}

// Switch closes the current store (if any) and opens newGameID,
// implementing the "gameID change = context switch" rule (spec §3.4).
func (s *Store) Switch(ctx context.Context, newGameID string) error {
	s.mu.Lock()
	if s.gameID == newGameID && s.db != nil {
		s.mu.Unlock()
		return nil
	}
	if err := s.closeLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.Initialize(ctx, newGameID)
}

// SetCurrentTurn records the most recently observed game turn, read by
// the auto-save ticker when it persists the "turn" metadata key.
func (s *Store) SetCurrentTurn(turn int) {
	s.currentTurn.Store(int64(turn))
}

func (s *Store) requireDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNoStoreOpen
	}
	return s.db, nil
}
