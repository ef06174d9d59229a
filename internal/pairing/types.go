package pairing

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// DefaultTeamSize is the only supported team size: doubles.
const DefaultTeamSize = 2

// MaxMinGamesPerPlayer caps the minimum games a single run may ask for.
const MaxMinGamesPerPlayer = 20

type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tier    Tier   `json:"tier"`
	Gender  Gender `json:"gender,omitempty"`
	Present bool   `json:"present"`
}

type Team struct {
	Player1 Player `json:"player1"`
	Player2 Player `json:"player2"`
}

func (t Team) Has(playerID string) bool {
	return t.Player1.ID == playerID || t.Player2.ID == playerID
}

type Match struct {
	ID    string `json:"id"`
	Court int    `json:"court"`
	Team1 Team   `json:"team1"`
	Team2 Team   `json:"team2"`
}

// Players returns the four players of the match, team1 first.
func (m Match) Players() [4]Player {
	return [4]Player{m.Team1.Player1, m.Team1.Player2, m.Team2.Player1, m.Team2.Player2}
}

func (m Match) Has(playerID string) bool {
	return m.Team1.Has(playerID) || m.Team2.Has(playerID)
}

// Opponents returns the team facing playerID, if the player is in the match.
func (m Match) Opponents(playerID string) (Team, bool) {
	switch {
	case m.Team1.Has(playerID):
		return m.Team2, true
	case m.Team2.Has(playerID):
		return m.Team1, true
	default:
		return Team{}, false
	}
}

// Tally counts assigned matches per player ID.
type Tally map[string]int

// NewTally returns a tally with every player at zero games.
func NewTally(players []Player) Tally {
	return lo.Associate(players, func(p Player) (string, int) {
		return p.ID, 0
	})
}

func (t Tally) Min() int {
	return lo.Min(lo.Values(t))
}

func (t Tally) Max() int {
	return lo.Max(lo.Values(t))
}

func (t Tally) add(m Match) {
	for _, p := range m.Players() {
		t[p.ID]++
	}
}

type Mode string

const (
	ModeByLevel     Mode = "by_level"
	ModeRandom      Mode = "random"
	ModeMixedGender Mode = "mixed_gender"
)

func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ModeByLevel, ModeRandom, ModeMixedGender:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown pairing mode %q", raw)
	}
}

// GenderRule decides which team compositions the mixed-gender policy accepts.
type GenderRule string

const (
	// GenderRuleMixed requires one male and one female player on each team.
	GenderRuleMixed GenderRule = "mixed"
	// GenderRuleMixedOrSameSex also accepts matches where all four players
	// share a gender.
	GenderRuleMixedOrSameSex GenderRule = "mixed_or_same_sex"
)

func ParseGenderRule(raw string) (GenderRule, error) {
	switch rule := GenderRule(strings.ToLower(strings.TrimSpace(raw))); rule {
	case GenderRuleMixed, GenderRuleMixedOrSameSex:
		return rule, nil
	default:
		return "", fmt.Errorf("unknown gender rule %q", raw)
	}
}

// Policy parameterizes one generation run.
type Policy struct {
	Mode              Mode       `json:"mode"`
	MinGamesPerPlayer int        `json:"min_games_per_player"`
	TeamSize          int        `json:"team_size"`
	GenderRule        GenderRule `json:"gender_rule,omitempty"`
}

// WithDefaults fills in the team size and, for mixed-gender runs, the gender rule.
func (p Policy) WithDefaults() Policy {
	if p.TeamSize == 0 {
		p.TeamSize = DefaultTeamSize
	}
	if p.Mode == ModeMixedGender && p.GenderRule == "" {
		p.GenderRule = GenderRuleMixed
	}
	return p
}

// Validate reports the first invalid field of the policy as an ErrInvalidPolicy failure.
func (p Policy) Validate() error {
	p = p.WithDefaults()
	if _, err := ParseMode(string(p.Mode)); err != nil {
		return newGenerationError(KindInvalidPolicy, err.Error(), nil)
	}
	if p.MinGamesPerPlayer < 1 {
		return newGenerationError(KindInvalidPolicy, "minimum games per player must be at least 1", nil)
	}
	if p.MinGamesPerPlayer > MaxMinGamesPerPlayer {
		return newGenerationError(KindInvalidPolicy, fmt.Sprintf("minimum games per player must be at most %d", MaxMinGamesPerPlayer), nil)
	}
	if p.TeamSize != DefaultTeamSize {
		return newGenerationError(KindInvalidPolicy, fmt.Sprintf("team size %d is not supported; only doubles (2) is", p.TeamSize), nil)
	}
	if p.Mode == ModeMixedGender {
		if _, err := ParseGenderRule(string(p.GenderRule)); err != nil {
			return newGenerationError(KindInvalidPolicy, err.Error(), nil)
		}
	}
	return nil
}

// Result is the output of one generation run. An empty Matches slice with a
// nil error is a successful run that could not form any match.
type Result struct {
	Matches []Match `json:"matches"`
	Tally   Tally   `json:"tally"`
}

// MatchesFor returns the matches playerID is assigned to, in court order.
func (r Result) MatchesFor(playerID string) []Match {
	return lo.Filter(r.Matches, func(m Match, _ int) bool {
		return m.Has(playerID)
	})
}

func (r Result) MinGames() int {
	return r.Tally.Min()
}

func (r Result) MaxGames() int {
	return r.Tally.Max()
}

// Balanced reports whether no player is more than one game ahead of another.
func (r Result) Balanced() bool {
	return r.MaxGames()-r.MinGames() <= 1
}
