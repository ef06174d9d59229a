package pairing

// EnumerateTeams returns every unordered pair of distinct players.
func EnumerateTeams(players []Player) []Team {
	if len(players) < 2 {
		return nil
	}
	teams := make([]Team, 0, len(players)*(len(players)-1)/2)
	for i := 0; i < len(players); i++ {
		for j := i + 1; j < len(players); j++ {
			if players[i].ID == players[j].ID {
				continue
			}
			teams = append(teams, Team{Player1: players[i], Player2: players[j]})
		}
	}
	return teams
}

// EnumerateMatches pairs every two teams that share no player. Only i<j pairs
// are produced, so a match never shows up again with its teams swapped. The
// same four players still appear under each of their three team splits.
func EnumerateMatches(teams []Team) []Match {
	var matches []Match
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			if !disjoint(teams[i], teams[j]) {
				continue
			}
			matches = append(matches, Match{Team1: teams[i], Team2: teams[j]})
		}
	}
	return matches
}

func disjoint(a, b Team) bool {
	return !b.Has(a.Player1.ID) && !b.Has(a.Player2.ID)
}

// AssignCourts labels matches with courts 1, 2, 3... in order. The input is not modified.
func AssignCourts(matches []Match) []Match {
	if len(matches) == 0 {
		return []Match{}
	}
	labeled := make([]Match, len(matches))
	for i, m := range matches {
		m.Court = i + 1
		labeled[i] = m
	}
	return labeled
}
