package pairing

// Select scans candidates once, in list order, accepting a candidate only if
// every player stays within one game of the least-played player. It stops as
// soon as every player has minGames, so later candidates are never used to
// over-serve players who already reached the minimum. Each candidate is
// accepted at most once and the result keeps list order. When the list runs
// out first, the returned tally is simply short of the minimum.
// Candidates must only reference players from players.
func Select(candidates []Match, players []Player, minGames int) ([]Match, Tally) {
	balance := newBalanceTracker(players)
	var selected []Match

	for _, candidate := range candidates {
		if balance.low >= minGames {
			break
		}
		if !balance.accepts(candidate) {
			continue
		}
		balance.add(candidate)
		selected = append(selected, candidate)
	}
	return selected, balance.tally
}

// balanceTracker keeps the tally together with its minimum and the number of
// players sitting at it. Selection only ever accepts matches that leave the
// spread at one game or less, so every count is either low or low+1.
type balanceTracker struct {
	tally Tally
	low   int
	atLow int
}

func newBalanceTracker(players []Player) *balanceTracker {
	tally := NewTally(players)
	return &balanceTracker{tally: tally, atLow: len(tally)}
}

// accepts reports whether max-min stays within one after adding m. That
// fails only when m contains a player one game ahead while some least-played
// player is left out.
func (b *balanceTracker) accepts(m Match) bool {
	lowsInMatch, aheadInMatch := 0, 0
	for _, p := range m.Players() {
		if b.tally[p.ID] == b.low {
			lowsInMatch++
		} else {
			aheadInMatch++
		}
	}
	return aheadInMatch == 0 || lowsInMatch == b.atLow
}

func (b *balanceTracker) add(m Match) {
	for _, p := range m.Players() {
		if b.tally[p.ID] == b.low {
			b.atLow--
		}
		b.tally[p.ID]++
	}
	if b.atLow > 0 || len(b.tally) == 0 {
		return
	}
	b.low++
	b.atLow = 0
	for _, games := range b.tally {
		if games == b.low {
			b.atLow++
		}
	}
}

// filterMatches keeps the candidates accepted by keep, preserving order.
func filterMatches(candidates []Match, keep func(Match) bool) []Match {
	var filtered []Match
	for _, m := range candidates {
		if keep(m) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// genderRuleFilter returns the composition check for rule.
func genderRuleFilter(rule GenderRule) func(Match) bool {
	switch rule {
	case GenderRuleMixedOrSameSex:
		return func(m Match) bool {
			return (isMixedTeam(m.Team1) && isMixedTeam(m.Team2)) || isSingleGenderMatch(m)
		}
	default:
		return func(m Match) bool {
			return isMixedTeam(m.Team1) && isMixedTeam(m.Team2)
		}
	}
}

func isMixedTeam(t Team) bool {
	return t.Player1.Gender.Known() && t.Player2.Gender.Known() && t.Player1.Gender != t.Player2.Gender
}

func isSingleGenderMatch(m Match) bool {
	players := m.Players()
	gender := players[0].Gender
	if !gender.Known() {
		return false
	}
	for _, p := range players[1:] {
		if p.Gender != gender {
			return false
		}
	}
	return true
}
