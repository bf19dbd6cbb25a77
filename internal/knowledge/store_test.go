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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir(), 8, 0, nil)
	require.NoError(t, s.Initialize(context.Background(), "test-game"))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestInitializeIsIdempotentForSameGame(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Initialize(context.Background(), "test-game"))
	require.Equal(t, "test-game", s.GameID())
}

func TestInitializeWritesGameMetadata(t *testing.T) {
	s := newTestStore(t)
	v, ok, err := s.ReadMetadata(context.Background(), "gameId")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "test-game", v)
}

func TestSwitchClosesAndReopens(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Switch(context.Background(), "other-game"))
	require.Equal(t, "other-game", s.GameID())
}

func TestTimedKnowledgeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "EventLog"))

	payload, _ := json.Marshal(map[string]any{"Message": "hello"})
	require.NoError(t, s.StoreTimedKnowledge(ctx, "EventLog", TimedItem{
		Key:     "evt-1",
		Payload: payload,
	}, 12))

	db, err := s.requireDB()
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM EventLog WHERE Key = ?", "evt-1").Scan(&count))
	require.Equal(t, 1, count)
}

func TestMutableKnowledgeNoOpWhenUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureMutableKnowledgeTable(ctx, "CityInformation"))

	item := MutableItem{Key: "city-1", Payload: map[string]any{"Population": 5}}
	wrote, err := s.StoreMutableKnowledge(ctx, "CityInformation", item, 1)
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = s.StoreMutableKnowledge(ctx, "CityInformation", item, 2)
	require.NoError(t, err)
	require.False(t, wrote, "identical payload should not write a new version")

	rec, err := s.GetMutableKnowledge(ctx, "CityInformation", "city-1", nil)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, float64(5), rec.Payload["Population"])
}

func TestMutableKnowledgeVersionsOnChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureMutableKnowledgeTable(ctx, "CityInformation"))

	_, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key: "city-1", Payload: map[string]any{"Population": 5},
	}, 1)
	require.NoError(t, err)

	wrote, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key: "city-1", Payload: map[string]any{"Population": 6},
	}, 2)
	require.NoError(t, err)
	require.True(t, wrote)

	require.Equal(t, 1, countLatestRows(t, s, "CityInformation", "city-1"))

	rec, err := s.GetMutableKnowledge(ctx, "CityInformation", "city-1", nil)
	require.NoError(t, err)
	require.Equal(t, float64(6), rec.Payload["Population"])
}

func TestMutableKnowledgeIgnoreFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureMutableKnowledgeTable(ctx, "CityInformation"))

	_, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key: "city-1", Payload: map[string]any{"Population": 5, "LastSeen": "t0"},
	}, 1)
	require.NoError(t, err)

	wrote, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key:          "city-1",
		Payload:      map[string]any{"Population": 5, "LastSeen": "t1"},
		IgnoreFields: []string{"LastSeen"},
	}, 2)
	require.NoError(t, err)
	require.False(t, wrote, "ignored field changing alone should not write a new version")
}

func TestGetMutableKnowledgeFetchIfMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureMutableKnowledgeTable(ctx, "CityInformation"))

	fetched := false
	fetcher := func(ctx context.Context) error {
		fetched = true
		_, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
			Key: "city-9", Payload: map[string]any{"Population": 1},
		}, 1)
		return err
	}

	rec, err := s.GetMutableKnowledge(ctx, "CityInformation", "city-9", fetcher)
	require.NoError(t, err)
	require.True(t, fetched)
	require.NotNil(t, rec)
}

func TestPublicKnowledgeUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsurePublicKnowledgeTable(ctx, "Buildings", "BuildingType"))

	data1, _ := json.Marshal(map[string]any{"Cost": 100})
	require.NoError(t, s.StorePublicKnowledge(ctx, "Buildings", "BuildingType", "BUILDING_LIBRARY", data1))

	data2, _ := json.Marshal(map[string]any{"Cost": 150})
	require.NoError(t, s.StorePublicKnowledge(ctx, "Buildings", "BuildingType", "BUILDING_LIBRARY", data2))

	all, err := s.GetAllPublicKnowledge(ctx, "Buildings")
	require.NoError(t, err)
	require.Len(t, all, 1, "upsert on unique index must not duplicate rows")
	require.Equal(t, float64(150), all[0]["Cost"])
}

func TestReadPlayerKnowledgeVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "CityInformations"))

	payload, _ := json.Marshal(map[string]any{"OwnerID": 3})
	visibility := ComposeVisibility([]int{3}, s.maxMajorCivs)
	require.NoError(t, s.StoreTimedKnowledge(ctx, "CityInformations", TimedItem{
		Key:        "city-owned-by-3",
		Payload:    payload,
		Visibility: visibility,
	}, 5))

	seenByThree, err := s.ReadPlayerKnowledge(ctx, 3, "CityInformations", "city-owned-by-3", nil)
	require.NoError(t, err)
	require.NotNil(t, seenByThree)
	require.Equal(t, float64(3), seenByThree["OwnerID"])

	seenByFour, err := s.ReadPlayerKnowledge(ctx, 4, "CityInformations", "city-owned-by-3", nil)
	require.NoError(t, err)
	require.Nil(t, seenByFour, "player 4 has not met player 3; row must be invisible")
}

func TestReadPlayerKnowledgeReturnsLatestTimedVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureTimedKnowledgeTable(ctx, "CityInformations"))

	visibility := ComposeVisibility([]int{3}, s.maxMajorCivs)

	payload5, _ := json.Marshal(map[string]any{"Population": 5})
	require.NoError(t, s.StoreTimedKnowledge(ctx, "CityInformations", TimedItem{
		Key:        "city-owned-by-3",
		Payload:    payload5,
		Visibility: visibility,
	}, 5))

	payload8, _ := json.Marshal(map[string]any{"Population": 8})
	require.NoError(t, s.StoreTimedKnowledge(ctx, "CityInformations", TimedItem{
		Key:        "city-owned-by-3",
		Payload:    payload8,
		Visibility: visibility,
	}, 9))

	seen, err := s.ReadPlayerKnowledge(ctx, 3, "CityInformations", "city-owned-by-3", nil)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, float64(8), seen["Population"], "must return the row from the highest Turn, not whatever row SQLite returns first")
}

func TestReadPlayerKnowledgeReturnsLatestMutableVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureMutableKnowledgeTable(ctx, "CityInformation"))

	visibility := ComposeVisibility([]int{3}, s.maxMajorCivs)

	_, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key:        "city-1",
		Payload:    map[string]any{"Population": 5},
		Visibility: visibility,
	}, 1)
	require.NoError(t, err)

	wrote, err := s.StoreMutableKnowledge(ctx, "CityInformation", MutableItem{
		Key:        "city-1",
		Payload:    map[string]any{"Population": 6},
		Visibility: visibility,
	}, 2)
	require.NoError(t, err)
	require.True(t, wrote)

	seen, err := s.ReadPlayerKnowledge(ctx, 3, "CityInformation", "city-1", nil)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, float64(6), seen["Population"], "must return the IsLatest=1 row, matching GetMutableKnowledge")
}

func TestAutoSaveWritesTurnMetadata(t *testing.T) {
	s := NewStore(t.TempDir(), 4, 20*time.Millisecond, nil)
	require.NoError(t, s.Initialize(context.Background(), "autosave-game"))
	defer s.Close(context.Background())

	s.SetCurrentTurn(42)

	require.Eventually(t, func() bool {
		v, ok, err := s.ReadMetadata(context.Background(), "turn")
		return err == nil && ok && v == "42"
	}, time.Second, 5*time.Millisecond)
}

// countLatestRows returns how many rows have IsLatest=1 for key, used
// to assert the MutableKnowledge "at most one IsLatest" invariant.
func countLatestRows(t *testing.T, s *Store, table, key string) int {
	t.Helper()
	db, err := s.requireDB()
	require.NoError(t, err)

	var count int
	err = db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM "+table+" WHERE Key = ? AND IsLatest = 1", key).Scan(&count)
	require.NoError(t, err)
	return count
}
