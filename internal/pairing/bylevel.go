package pairing

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// recentMatchWindow is how many of the latest matches the leftover fill-in
// avoids pulling players from.
const recentMatchWindow = 2

// AssignByLevel orders players by tier and deals them into consecutive
// groups of four, one pass per required game. Within a group the players at
// offsets 0 and 2 face the players at offsets 1 and 3, which spreads the
// group's skill across both teams. A pass that ends with fewer than four
// players recruits fill-ins (see fillLeftover). The result does not depend
// on anything but the input order, so repeated calls return the same matches.
func AssignByLevel(players []Player, minGames int) ([]Match, Tally) {
	ordered := sortByTier(players)
	tally := NewTally(players)
	var matches []Match

	for pass := 0; pass < minGames; pass++ {
		needy := lo.Filter(ordered, func(p Player, _ int) bool {
			return tally[p.ID] < minGames
		})
		if len(needy) == 0 {
			break
		}

		for len(needy) >= 4 {
			m := interleavedMatch(needy[:4])
			tally.add(m)
			matches = append(matches, m)
			needy = needy[4:]
		}
		if len(needy) == 0 {
			continue
		}

		group, ok := fillLeftover(needy, ordered, tally, matches, minGames)
		if !ok {
			break
		}
		m := interleavedMatch(sortByTier(group))
		tally.add(m)
		matches = append(matches, m)
	}

	return matches, tally
}

func sortByTier(players []Player) []Player {
	ordered := slices.Clone(players)
	slices.SortStableFunc(ordered, func(a, b Player) int {
		return cmp.Compare(a.Tier.Rank(), b.Tier.Rank())
	})
	return ordered
}

func interleavedMatch(group []Player) Match {
	return Match{
		Team1: Team{Player1: group[0], Player2: group[2]},
		Team2: Team{Player1: group[1], Player2: group[3]},
	}
}

// fillLeftover tops up a group of fewer than four players from the roster.
// Recruits are searched in widening stages:
//  1. same-tier players who already reached minGames and sat out the most recent matches
//  2. any same-tier player
//  3. any player, closest tier first
//
// Within a stage the least-played players come first. It reports false only
// when the roster cannot supply enough players.
func fillLeftover(leftover, roster []Player, tally Tally, played []Match, minGames int) ([]Player, bool) {
	group := slices.Clone(leftover)
	inGroup := make(map[string]struct{}, 4)
	tiers := make(map[Tier]struct{}, len(leftover))
	for _, p := range leftover {
		inGroup[p.ID] = struct{}{}
		tiers[p.Tier] = struct{}{}
	}

	recent := make(map[string]struct{}, recentMatchWindow*4)
	for _, m := range played[max(0, len(played)-recentMatchWindow):] {
		for _, p := range m.Players() {
			recent[p.ID] = struct{}{}
		}
	}

	sameTier := func(p Player) bool {
		_, ok := tiers[p.Tier]
		return ok
	}
	stages := []func(Player) bool{
		func(p Player) bool {
			_, wasRecent := recent[p.ID]
			return sameTier(p) && tally[p.ID] >= minGames && !wasRecent
		},
		sameTier,
		func(Player) bool { return true },
	}

	for _, accept := range stages {
		if len(group) == 4 {
			break
		}
		pool := lo.Filter(roster, func(p Player, _ int) bool {
			_, taken := inGroup[p.ID]
			return !taken && accept(p)
		})
		slices.SortStableFunc(pool, func(a, b Player) int {
			if c := cmp.Compare(tally[a.ID], tally[b.ID]); c != 0 {
				return c
			}
			return cmp.Compare(tierDistance(a.Tier, tiers), tierDistance(b.Tier, tiers))
		})
		for _, p := range pool {
			if len(group) == 4 {
				break
			}
			group = append(group, p)
			inGroup[p.ID] = struct{}{}
		}
	}

	return group, len(group) == 4
}

func tierDistance(tier Tier, targets map[Tier]struct{}) int {
	best := -1
	for target := range targets {
		d := tier.Rank() - target.Rank()
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
