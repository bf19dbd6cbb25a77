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

// Visibility levels returned by GetPlayerVisibility (spec §4.3
// "getPlayerVisibility ... returns 0/1/2 using diplomatic 'met'
// status").
const (
	VisibilityNone  = 0 // never met; target is invisible
	VisibilityKnown = 1 // met; basic knowledge visible
	VisibilityFull  = 2 // full knowledge, e.g. viewer == target or team-mate
)

// ComposeVisibility returns {Player0:0,...} with a 1 for every ID in
// playerIDs and 0 elsewhere, sized by maxMajorCivs (spec §4.3
// "composeVisibility").
func ComposeVisibility(playerIDs []int, maxMajorCivs int) map[string]int {
	visible := make(map[int]bool, len(playerIDs))
	for _, id := range playerIDs {
		visible[id] = true
	}

	out := make(map[string]int, maxMajorCivs)
	for i := 0; i < maxMajorCivs; i++ {
		if visible[i] {
			out[playerColumn(i)] = 1
		} else {
			out[playerColumn(i)] = 0
		}
	}
	return out
}

// MetStatus reports whether viewer has met target and, if so, whether
// the relationship grants full visibility (e.g. a team-mate or the
// viewer itself).
type MetStatus struct {
	Met  bool
	Full bool
}

// DiplomaticSummaries maps playerID to that player's met-status record
// against every other player it has met, keyed by the other player's
// ID. Populated from the DLL's diplomatic-state game events.
type DiplomaticSummaries map[int]map[int]MetStatus

// GetPlayerVisibility returns 0/1/2 using diplomatic "met" status
// (spec §4.3 "getPlayerVisibility"): 2 if viewer==target, 2 if their
// relationship is marked Full (team-mates), 1 if met, else 0.
func GetPlayerVisibility(summaries DiplomaticSummaries, viewer, target int) int {
	if viewer == target {
		return VisibilityFull
	}

	statuses, ok := summaries[viewer]
	if !ok {
		return VisibilityNone
	}
	status, ok := statuses[target]
	if !ok || !status.Met {
		return VisibilityNone
	}
	if status.Full {
		return VisibilityFull
	}
	return VisibilityKnown
}
