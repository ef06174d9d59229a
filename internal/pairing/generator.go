package pairing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const minPlayersPerMatch = 4

// Generator turns a roster snapshot into matches. It keeps no state between
// runs apart from its random source, which is guarded so one Generator can
// serve concurrent requests.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	newID func() string
}

type Option func(*Generator)

// WithRand sets the random source used to order candidates in the random and
// mixed-gender modes.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithSeed is WithRand with a PCG source seeded from seed.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithIDFunc overrides how match IDs are generated.
func WithIDFunc(newID func() string) Option {
	return func(g *Generator) {
		if newID != nil {
			g.newID = newID
		}
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate validates the roster against the policy and produces matches and
// a tally covering every present player. Validation failures are returned as
// *GenerationError before any candidate is built.
func (g *Generator) Generate(ctx context.Context, roster []Player, policy Policy) (Result, error) {
	policy = policy.WithDefaults()
	logger := log.Ctx(ctx).With().
		Str("component", "pairing_generator").
		Str("mode", string(policy.Mode)).
		Int("min_games", policy.MinGamesPerPlayer).
		Int("roster_size", len(roster)).
		Logger()

	if err := policy.Validate(); err != nil {
		logger.Debug().Err(err).Msg("Rejected pairing policy")
		return Result{}, err
	}

	players, err := eligiblePlayers(roster)
	if err != nil {
		logger.Debug().Err(err).Msg("Rejected roster")
		return Result{}, err
	}
	if policy.Mode == ModeMixedGender {
		if err := checkGenderBalance(players); err != nil {
			logger.Debug().Err(err).Msg("Rejected roster for mixed-gender pairing")
			return Result{}, err
		}
	}

	var (
		matches []Match
		tally   Tally
	)
	switch policy.Mode {
	case ModeByLevel:
		matches, tally = AssignByLevel(players, policy.MinGamesPerPlayer)
	case ModeRandom:
		candidates := EnumerateMatches(EnumerateTeams(players))
		g.shuffle(candidates)
		matches, tally = Select(candidates, players, policy.MinGamesPerPlayer)
	case ModeMixedGender:
		candidates := filterMatches(EnumerateMatches(EnumerateTeams(players)), genderRuleFilter(policy.GenderRule))
		g.shuffle(candidates)
		matches, tally = Select(candidates, players, policy.MinGamesPerPlayer)
	}

	matches = AssignCourts(g.withIDs(matches))
	result := Result{Matches: matches, Tally: tally}

	logger.Info().
		Int("eligible_players", len(players)).
		Int("match_count", len(matches)).
		Int("min_player_games", result.MinGames()).
		Int("max_player_games", result.MaxGames()).
		Msg("Generated matches")
	return result, nil
}

func (g *Generator) shuffle(candidates []Match) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
}

func (g *Generator) withIDs(matches []Match) []Match {
	for i := range matches {
		matches[i].ID = g.newID()
	}
	return matches
}

// eligiblePlayers keeps present players and rejects rosters that cannot
// form a single match or that list a player twice.
func eligiblePlayers(roster []Player) ([]Player, error) {
	present := lo.Filter(roster, func(p Player, _ int) bool {
		return p.Present
	})

	seen := make(map[string]struct{}, len(present))
	var duplicates []string
	for _, p := range present {
		if _, ok := seen[p.ID]; ok {
			duplicates = append(duplicates, p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
	}
	if len(duplicates) > 0 {
		return nil, newGenerationError(KindDuplicatePlayer, "players listed more than once", lo.Uniq(duplicates))
	}

	if len(present) < minPlayersPerMatch {
		return nil, newGenerationError(KindInsufficientPlayers,
			fmt.Sprintf("at least %d present players are required, got %d", minPlayersPerMatch, len(present)), nil)
	}
	return present, nil
}

func checkGenderBalance(players []Player) error {
	var missing []string
	counts := make(map[Gender]int, 2)
	for _, p := range players {
		if !p.Gender.Known() {
			missing = append(missing, p.ID)
			continue
		}
		counts[p.Gender]++
	}
	if len(missing) > 0 {
		return newGenerationError(KindMissingRequiredAttribute, "present players are missing gender", missing)
	}
	if counts[GenderMale] < 2 || counts[GenderFemale] < 2 {
		return newGenerationError(KindInsufficientGenderBalance,
			fmt.Sprintf("mixed-gender pairing needs at least 2 male and 2 female players, got %d and %d",
				counts[GenderMale], counts[GenderFemale]), nil)
	}
	return nil
}
