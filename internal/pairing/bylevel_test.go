package pairing

import "testing"

func TestAssignByLevelEightEqualPlayers(t *testing.T) {
	players := roster(TierC, 8)
	matches, tally := AssignByLevel(players, 1)

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	assertNoDoubleBooking(t, matches)
	for _, p := range players {
		if tally[p.ID] != 1 {
			t.Fatalf("player %s has %d games, want 1", p.ID, tally[p.ID])
		}
	}
}

func TestAssignByLevelInterleavesTeams(t *testing.T) {
	players := []Player{
		player("d1", TierD, GenderUnknown),
		player("b1", TierB, GenderUnknown),
		player("a1", TierA, GenderUnknown),
		player("c1", TierC, GenderUnknown),
	}
	matches, _ := AssignByLevel(players, 1)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Team1.Player1.ID != "a1" || m.Team1.Player2.ID != "c1" {
		t.Fatalf("team1 = %s/%s, want a1/c1", m.Team1.Player1.ID, m.Team1.Player2.ID)
	}
	if m.Team2.Player1.ID != "b1" || m.Team2.Player2.ID != "d1" {
		t.Fatalf("team2 = %s/%s, want b1/d1", m.Team2.Player1.ID, m.Team2.Player2.ID)
	}
}

func TestAssignByLevelFillInAvoidsRecentPlayers(t *testing.T) {
	players := roster(TierC, 14)
	matches, tally := AssignByLevel(players, 1)
	if len(matches) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(matches))
	}

	last := matches[3]
	if !last.Has("p13") || !last.Has("p14") {
		t.Fatalf("expected leftover players in last match, got %+v", last)
	}
	for _, recent := range []string{"p5", "p6", "p7", "p8", "p9", "p10", "p11", "p12"} {
		if last.Has(recent) {
			t.Fatalf("fill-in recruited %s from one of the two most recent matches", recent)
		}
	}
	if !last.Has("p1") || !last.Has("p2") {
		t.Fatalf("expected p1 and p2 as fill-ins, got %+v", last)
	}
	if tally.Min() != 1 || tally.Max() != 2 {
		t.Fatalf("unexpected tally spread: %v", tally)
	}
}

func TestAssignByLevelFillInFallsBackToNearestTier(t *testing.T) {
	players := []Player{
		player("a1", TierA, GenderUnknown),
		player("a2", TierA, GenderUnknown),
		player("a3", TierA, GenderUnknown),
		player("b1", TierB, GenderUnknown),
		player("d1", TierD, GenderUnknown),
		player("d2", TierD, GenderUnknown),
	}
	matches, tally := AssignByLevel(players, 1)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	second := matches[1]
	for _, id := range []string{"d1", "d2", "b1", "a1"} {
		if !second.Has(id) {
			t.Fatalf("expected %s in fill-in match, got %+v", id, second)
		}
	}
	if second.Team1.Player1.ID != "a1" || second.Team1.Player2.ID != "d1" {
		t.Fatalf("fill-in team1 = %s/%s, want a1/d1", second.Team1.Player1.ID, second.Team1.Player2.ID)
	}
	assertTallyMatches(t, tally, matches)
}

func TestAssignByLevelReachesMinimum(t *testing.T) {
	for n := 4; n <= 13; n++ {
		for minGames := 1; minGames <= 3; minGames++ {
			players := roster(TierB, n)
			matches, tally := AssignByLevel(players, minGames)
			assertNoDoubleBooking(t, matches)
			assertTallyCovers(t, tally, players)
			assertTallyMatches(t, tally, matches)
			if tally.Min() < minGames {
				t.Fatalf("n=%d min=%d: lowest tally %d", n, minGames, tally.Min())
			}
			if tally.Max()-tally.Min() > 1 {
				t.Fatalf("n=%d min=%d: unbalanced tally %v", n, minGames, tally)
			}
		}
	}
}

func TestAssignByLevelIsDeterministic(t *testing.T) {
	players := []Player{
		player("p1", TierB, GenderUnknown),
		player("p2", TierA, GenderUnknown),
		player("p3", TierUnrated, GenderUnknown),
		player("p4", TierC, GenderUnknown),
		player("p5", TierB, GenderUnknown),
		player("p6", TierE, GenderUnknown),
		player("p7", TierA, GenderUnknown),
	}
	first, _ := AssignByLevel(players, 2)
	second, _ := AssignByLevel(players, 2)
	if matchSignature(first) != matchSignature(second) {
		t.Fatalf("by-level assignment changed between runs:\n%s\n%s", matchSignature(first), matchSignature(second))
	}
}
