package pairing

import (
	"math/rand/v2"
	"testing"
)

func matchOf(a, b, c, d Player) Match {
	return Match{Team1: Team{Player1: a, Player2: b}, Team2: Team{Player1: c, Player2: d}}
}

func TestSelectStopsOnceMinimumIsReached(t *testing.T) {
	players := roster(TierC, 8)
	candidates := EnumerateMatches(EnumerateTeams(players))

	selected, tally := Select(candidates, players, 1)
	if len(selected) != 2 {
		t.Fatalf("expected 2 matches out of %d candidates, got %d", len(candidates), len(selected))
	}
	for _, p := range players {
		if tally[p.ID] != 1 {
			t.Fatalf("player %s has %d games, want 1", p.ID, tally[p.ID])
		}
	}
	assertNoDoubleBooking(t, selected)
}

func TestSelectRejectsUnbalancingCandidates(t *testing.T) {
	p := roster(TierC, 8)
	first := matchOf(p[0], p[1], p[2], p[3])
	unbalancing := matchOf(p[0], p[1], p[4], p[5])
	rest := matchOf(p[4], p[5], p[6], p[7])

	selected, tally := Select([]Match{first, unbalancing, rest}, p, 1)
	if len(selected) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(selected))
	}
	if selected[1] != rest {
		t.Fatalf("expected the unbalancing candidate to be skipped, got %+v", selected[1])
	}
	if tally.Max()-tally.Min() > 1 {
		t.Fatalf("unbalanced tally: %v", tally)
	}
}

func TestSelectScansCandidatesOnce(t *testing.T) {
	p := roster(TierC, 8)
	first := matchOf(p[0], p[1], p[2], p[3])
	unbalancing := matchOf(p[0], p[1], p[4], p[5])
	rest := matchOf(p[4], p[5], p[6], p[7])
	candidates := []Match{first, unbalancing, rest}

	selected, tally := Select(candidates, p, 2)
	if len(selected) != 2 || selected[0] != first || selected[1] != rest {
		t.Fatalf("expected [first rest], got %+v", selected)
	}
	assertSelectedInOrder(t, candidates, selected)
	for _, player := range p {
		if tally[player.ID] != 1 {
			t.Fatalf("player %s has %d games, want 1", player.ID, tally[player.ID])
		}
	}
}

func TestSelectNeverRepeatsACandidate(t *testing.T) {
	players := []Player{
		player("M1", TierC, GenderMale),
		player("M2", TierC, GenderMale),
		player("F1", TierC, GenderFemale),
		player("F2", TierC, GenderFemale),
	}
	candidates := filterMatches(EnumerateMatches(EnumerateTeams(players)), genderRuleFilter(GenderRuleMixed))
	if len(candidates) != 2 {
		t.Fatalf("expected 2 mixed candidates, got %d", len(candidates))
	}

	selected, tally := Select(candidates, players, 3)
	if len(selected) != 2 {
		t.Fatalf("expected both candidates once, got %d matches", len(selected))
	}
	assertSelectedInOrder(t, candidates, selected)
	if tally.Min() != 2 || tally.Max() != 2 {
		t.Fatalf("unexpected tally %v", tally)
	}
}

func TestSelectSingleScanProperties(t *testing.T) {
	for n := 4; n <= 12; n++ {
		for minGames := 1; minGames <= 3; minGames++ {
			players := roster(TierC, n)
			candidates := EnumerateMatches(EnumerateTeams(players))
			rng := rand.New(rand.NewPCG(uint64(n), uint64(minGames)))
			rng.Shuffle(len(candidates), func(i, j int) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			})

			selected, tally := Select(candidates, players, minGames)
			assertSelectedInOrder(t, candidates, selected)
			assertTallyMatches(t, tally, selected)
			if tally.Max()-tally.Min() > 1 {
				t.Fatalf("n=%d min=%d: unbalanced tally %v", n, minGames, tally)
			}
			if tally.Min() >= minGames && len(selected) > 0 {
				last := selected[len(selected)-1]
				before := Tally{}
				for id, games := range tally {
					before[id] = games
				}
				for _, p := range last.Players() {
					before[p.ID]--
				}
				if before.Min() >= minGames {
					t.Fatalf("n=%d min=%d: kept selecting after every player reached the minimum", n, minGames)
				}
			}
		}
	}
}

func TestSelectWithoutCandidates(t *testing.T) {
	players := roster(TierC, 5)
	selected, tally := Select(nil, players, 1)
	if len(selected) != 0 {
		t.Fatalf("expected no matches, got %d", len(selected))
	}
	assertTallyCovers(t, tally, players)
	if tally.Max() != 0 {
		t.Fatalf("expected all zero tally, got %v", tally)
	}
}

func TestSelectLetsLeftoverPlayersCatchUp(t *testing.T) {
	for n := 5; n <= 11; n++ {
		players := roster(TierC, n)
		candidates := EnumerateMatches(EnumerateTeams(players))
		selected, tally := Select(candidates, players, 1)
		if tally.Min() < 1 {
			t.Fatalf("n=%d: player left without a game: %v", n, tally)
		}
		if tally.Max()-tally.Min() > 1 {
			t.Fatalf("n=%d: unbalanced tally %v", n, tally)
		}
		assertSelectedInOrder(t, candidates, selected)
		assertTallyMatches(t, tally, selected)
	}
}
