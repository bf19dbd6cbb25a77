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
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// startAutoSaveLocked schedules the periodic metadata save job (spec
// §4.3 "Database lifecycle": auto-save interval) on an "@every"
// cron.Cron schedule. The caller must hold s.mu and s.db must be
// non-nil. A zero interval disables auto-save.
//
// The job operates on a captured *sql.DB rather than locking s.mu on
// each run, since s.mu is held across stopAutoSaveLocked's wait for
// the scheduler to stop; taking s.mu from within the job would
// deadlock against that wait.
func (s *Store) startAutoSaveLocked() {
	if s.autoSaveInterval <= 0 {
		return
	}

	c := cron.New()
	db := s.db
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.autoSaveInterval), func() {
		s.runAutoSave(db)
	}); err != nil {
		s.log.Warn("auto-save: failed to schedule job", zap.Error(err))
		return
	}

	s.autoSaveCron = c
	c.Start()
}

func (s *Store) runAutoSave(db *sql.DB) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	turn := s.currentTurn.Load()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO GameMetadata (Key, Value) VALUES ('turn', ?)
		ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value
	`, strconv.FormatInt(turn, 10)); err != nil {
		s.log.Warn("auto-save: failed to write turn metadata", zap.Error(err))
		return
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO GameMetadata (Key, Value) VALUES ('lastSave', ?)
		ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value
	`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("auto-save: failed to write lastSave metadata", zap.Error(err))
		return
	}
	s.log.Debug("auto-save complete", zap.Int64("turn", turn))
}

// stopAutoSaveLocked stops the scheduler and waits for any in-flight
// run to finish. The caller must hold s.mu.
func (s *Store) stopAutoSaveLocked() {
	if s.autoSaveCron == nil {
		return
	}
	<-s.autoSaveCron.Stop().Done()
	s.autoSaveCron = nil
}
