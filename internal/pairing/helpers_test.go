package pairing

import (
	"fmt"
	"testing"
)

func roster(tier Tier, n int) []Player {
	players := make([]Player, 0, n)
	for i := 1; i <= n; i++ {
		players = append(players, Player{
			ID:      fmt.Sprintf("p%d", i),
			Name:    fmt.Sprintf("Player %d", i),
			Tier:    tier,
			Present: true,
		})
	}
	return players
}

func player(id string, tier Tier, gender Gender) Player {
	return Player{ID: id, Name: id, Tier: tier, Gender: gender, Present: true}
}

func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("m%d", next)
	}
}

func assertNoDoubleBooking(t *testing.T, matches []Match) {
	t.Helper()
	for _, m := range matches {
		seen := make(map[string]struct{}, 4)
		for _, p := range m.Players() {
			seen[p.ID] = struct{}{}
		}
		if len(seen) != 4 {
			t.Fatalf("match %s books a player twice: %+v", m.ID, m)
		}
	}
}

func assertTallyCovers(t *testing.T, tally Tally, players []Player) {
	t.Helper()
	for _, p := range players {
		if !p.Present {
			continue
		}
		if _, ok := tally[p.ID]; !ok {
			t.Fatalf("tally missing present player %s", p.ID)
		}
	}
}

func assertTallyMatches(t *testing.T, tally Tally, matches []Match) {
	t.Helper()
	counted := make(map[string]int)
	for _, m := range matches {
		for _, p := range m.Players() {
			counted[p.ID]++
		}
	}
	for id, games := range tally {
		if counted[id] != games {
			t.Fatalf("tally for %s = %d, but matches assign %d", id, games, counted[id])
		}
	}
}

func matchSignature(matches []Match) string {
	var sig string
	for _, m := range matches {
		sig += fmt.Sprintf("[%s,%s|%s,%s]", m.Team1.Player1.ID, m.Team1.Player2.ID, m.Team2.Player1.ID, m.Team2.Player2.ID)
	}
	return sig
}

// assertSelectedInOrder checks that selected is a subsequence of candidates:
// every selected match appears in the list, in list order, at most once.
func assertSelectedInOrder(t *testing.T, candidates, selected []Match) {
	t.Helper()
	next := 0
	for i, m := range selected {
		for next < len(candidates) && candidates[next] != m {
			next++
		}
		if next == len(candidates) {
			t.Fatalf("selected match %d %s is not a later candidate", i, matchSignature([]Match{m}))
		}
		next++
	}
}

// assertDistinctMatches fails when two matches put the same players in the same teams.
func assertDistinctMatches(t *testing.T, matches []Match) {
	t.Helper()
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		sig := matchSignature([]Match{m})
		if _, ok := seen[sig]; ok {
			t.Fatalf("match %s scheduled twice", sig)
		}
		seen[sig] = struct{}{}
	}
}
