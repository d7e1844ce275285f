// Property-based tests for spend, donation and banking rules.
package service

import (
	"testing"

	"pgregory.net/rapid"
)

// ledgerState is a pure model of one user's balance sources.
type ledgerState struct {
	Achievement int64
	Progress    int64
	Manual      int64
	Banked      int64
	Spent       int64
}

func (s ledgerState) available() int64 {
	return simulateAvailable(s.Achievement, s.Progress, s.Manual, s.Banked, s.Spent)
}

// simulateRedeem mirrors RewardService.Redeem: reject when the cost exceeds
// the available balance, otherwise append to the spend ledger.
func simulateRedeem(s ledgerState, cost int64) (ledgerState, bool) {
	if s.available() < cost {
		return s, false
	}
	s.Spent += cost
	return s, true
}

// simulateDonate mirrors RewardService.Donate: paired manual adjustments
// gated on the donor's available balance.
func simulateDonate(donor, recipient ledgerState, amount int64) (ledgerState, ledgerState, bool) {
	if amount <= 0 {
		return donor, recipient, false
	}
	if donor.available() < amount {
		return donor, recipient, false
	}
	donor.Manual -= amount
	recipient.Manual += amount
	return donor, recipient, true
}

// simulateLeave mirrors CompetitionService banking: positive progress moves
// to the banked balance, the participation disappears either way.
func simulateLeave(s ledgerState) ledgerState {
	if s.Progress > 0 {
		s.Banked += s.Progress
	}
	s.Progress = 0
	return s
}

func stateGen() *rapid.Generator[ledgerState] {
	return rapid.Custom(func(t *rapid.T) ledgerState {
		return ledgerState{
			Achievement: rapid.Int64Range(0, 1000).Draw(t, "achievement"),
			Progress:    rapid.Int64Range(-500, 1000).Draw(t, "progress"),
			Manual:      rapid.Int64Range(-500, 1000).Draw(t, "manual"),
			Banked:      rapid.Int64Range(0, 1000).Draw(t, "banked"),
			Spent:       rapid.Int64Range(0, 1000).Draw(t, "spent"),
		}
	})
}

// TestRedeemNeverOverspendsProperty checks that any sequence of redemptions
// keeps the available balance non-negative and that rejected redemptions
// leave the state untouched.
func TestRedeemNeverOverspendsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := stateGen().Draw(t, "state")
		costs := rapid.SliceOfN(rapid.Int64Range(1, 500), 1, 20).Draw(t, "costs")

		for _, cost := range costs {
			before := state
			after, ok := simulateRedeem(state, cost)
			if !ok {
				if after != before {
					t.Fatal("rejected redemption mutated state")
				}
				continue
			}
			if after.available() != before.available()-cost {
				t.Fatalf("redeem of %d: available %d -> %d", cost, before.available(), after.available())
			}
			state = after
		}

		if state.available() < 0 {
			t.Fatalf("available went negative: %d", state.available())
		}
	})
}

// TestDonationConservationProperty checks that a successful donation moves
// exactly the amount between donor and recipient manual entries and that
// the donor cannot overdraw.
func TestDonationConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		donor := stateGen().Draw(t, "donor")
		recipient := stateGen().Draw(t, "recipient")
		amount := rapid.Int64Range(-100, 1000).Draw(t, "amount")

		donorAfter, recipientAfter, ok := simulateDonate(donor, recipient, amount)
		if !ok {
			if amount > 0 && donor.available() >= amount {
				t.Fatal("eligible donation rejected")
			}
			return
		}

		if donorAfter.Manual != donor.Manual-amount {
			t.Fatalf("donor manual: %d -> %d, amount %d", donor.Manual, donorAfter.Manual, amount)
		}
		if recipientAfter.Manual != recipient.Manual+amount {
			t.Fatalf("recipient manual: %d -> %d, amount %d", recipient.Manual, recipientAfter.Manual, amount)
		}

		// The transferred amount is conserved across the pair of entries.
		sumBefore := donor.Manual + recipient.Manual
		sumAfter := donorAfter.Manual + recipientAfter.Manual
		if sumBefore != sumAfter {
			t.Fatalf("manual points not conserved: %d -> %d", sumBefore, sumAfter)
		}

		if donorAfter.available() < 0 {
			t.Fatalf("donor overdrawn: %d", donorAfter.available())
		}
	})
}

// TestBankingConservationProperty checks that leaving banks positive
// progress exactly once and never banks negative progress.
func TestBankingConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := stateGen().Draw(t, "state")

		after := simulateLeave(state)

		if state.Progress > 0 {
			if after.Banked != state.Banked+state.Progress {
				t.Fatalf("banked %d -> %d, progress was %d", state.Banked, after.Banked, state.Progress)
			}
		} else if after.Banked != state.Banked {
			t.Fatalf("non-positive progress %d changed banked balance", state.Progress)
		}

		// The participation is gone; a second leave finds nothing to bank.
		again := simulateLeave(after)
		if again.Banked != after.Banked {
			t.Fatal("repeated leave banked progress twice")
		}
	})
}

// TestProgressJoinIdempotencyProperty checks that any sequence of progress
// joins yields at most one participation per (user, competition) and that
// repeat joins observe the original row.
func TestProgressJoinIdempotencyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		type key struct {
			user string
			comp int64
		}

		rows := make(map[key]int64) // participation id per pair
		nextID := int64(1)

		numJoins := rapid.IntRange(1, 50).Draw(t, "numJoins")
		users := []string{"alice", "bob", "carol"}

		for i := 0; i < numJoins; i++ {
			k := key{
				user: rapid.SampledFrom(users).Draw(t, "user"),
				comp: rapid.Int64Range(1, 5).Draw(t, "comp"),
			}

			if id, ok := rows[k]; ok {
				// Idempotent: the existing id is returned, no new row.
				countBefore := len(rows)
				if rows[k] != id {
					t.Fatal("repeat join changed the participation id")
				}
				if len(rows) != countBefore {
					t.Fatal("repeat join inserted a row")
				}
				continue
			}
			rows[k] = nextID
			nextID++
		}

		seen := make(map[int64]bool, len(rows))
		for _, id := range rows {
			if seen[id] {
				t.Fatal("duplicate participation id")
			}
			seen[id] = true
		}
	})
}
