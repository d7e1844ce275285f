// Property-based tests for leaderboard ordering.
package service

import (
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// sortEntries mirrors LeaderboardService.Board's ordering: points
// descending, ties broken by user identifier ascending.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
}

var entryGen = rapid.Custom(func(t *rapid.T) Entry {
	return Entry{
		UserID: rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "user"),
		Points: rapid.Int64Range(0, 100).Draw(t, "points"),
	}
})

// TestLeaderboardOrderingDeterministicProperty checks that the ordering is
// a total order: sorting any permutation of entries with distinct users
// yields the same sequence.
func TestLeaderboardOrderingDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		drawn := rapid.SliceOfN(entryGen, 1, 30).Draw(t, "entries")

		// Deduplicate users: the board computes one entry per user.
		seen := make(map[string]bool)
		var entries []Entry
		for _, e := range drawn {
			if !seen[e.UserID] {
				seen[e.UserID] = true
				entries = append(entries, e)
			}
		}

		first := make([]Entry, len(entries))
		copy(first, entries)
		sortEntries(first)

		// Reverse the input and sort again.
		second := make([]Entry, len(entries))
		for i, e := range entries {
			second[len(entries)-1-i] = e
		}
		sortEntries(second)

		for i := range first {
			if first[i].UserID != second[i].UserID || first[i].Points != second[i].Points {
				t.Fatalf("ordering depends on input order at index %d: %+v vs %+v", i, first[i], second[i])
			}
		}
	})
}

// TestLeaderboardOrderingInvariantProperty checks that each entry dominates
// the next: higher points, or equal points and lower user id.
func TestLeaderboardOrderingInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := rapid.SliceOfN(entryGen, 2, 30).Draw(t, "entries")
		sortEntries(entries)

		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			if prev.Points < cur.Points {
				t.Fatalf("points not descending at %d: %d then %d", i, prev.Points, cur.Points)
			}
			if prev.Points == cur.Points && prev.UserID > cur.UserID {
				t.Fatalf("tie not broken by user id at %d: %q then %q", i, prev.UserID, cur.UserID)
			}
		}
	})
}
