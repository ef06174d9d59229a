// internal/sessions/service.go
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	appdb "github.com/codr1/Shuttleicious/internal/db"
	"github.com/codr1/Shuttleicious/internal/pairing"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// StaleSessionReason is recorded on sessions cancelled because their day passed.
const StaleSessionReason = "session date passed"

// generateTimeout bounds a shared generate run, which outlives any single caller.
const generateTimeout = 30 * time.Second

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// allowedTransitions maps a target status to the statuses it may be entered from.
var allowedTransitions = map[Status][]Status{
	StatusOngoing:   {StatusScheduled},
	StatusCompleted: {StatusOngoing},
	StatusCancelled: {StatusScheduled, StatusOngoing},
}

func ParseStatus(raw string) (Status, error) {
	switch status := Status(raw); status {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("unknown session status %q", raw)
	}
}

type Session struct {
	ID                 string          `json:"id"`
	Date               string          `json:"date"`
	Mode               pairing.Mode    `json:"mode"`
	MinGames           int             `json:"min_games"`
	GenderRule         string          `json:"gender_rule,omitempty"`
	Status             Status          `json:"status"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	Matches            []pairing.Match `json:"matches"`
	Tally              pairing.Tally   `json:"tally"`
}

// MatchesFor returns the matches playerID plays in, in court order.
func (s Session) MatchesFor(playerID string) []pairing.Match {
	return pairing.Result{Matches: s.Matches, Tally: s.Tally}.MatchesFor(playerID)
}

// RosterSource supplies the present-player snapshot for a day.
type RosterSource interface {
	PresentPlayers(ctx context.Context, date time.Time) ([]pairing.Player, error)
}

type GenerateParams struct {
	Date   time.Time
	Policy pairing.Policy
}

// Service generates match sessions and manages their lifecycle.
type Service struct {
	db        *appdb.DB
	roster    RosterSource
	generator *pairing.Generator
	inflight  singleflight.Group
	newID     func() string
}

func NewService(database *appdb.DB, source RosterSource, generator *pairing.Generator) (*Service, error) {
	if database == nil {
		return nil, errors.New("session service requires a database")
	}
	if source == nil {
		return nil, errors.New("session service requires a roster source")
	}
	if generator == nil {
		generator = pairing.NewGenerator()
	}
	return &Service{
		db:        database,
		roster:    source,
		generator: generator,
		newID:     uuid.NewString,
	}, nil
}

// Generate snapshots the roster for the day, runs the pairing engine and
// stores the result as a scheduled session. Concurrent calls for the same day
// and policy share one run. Pairing failures are returned as they come from
// the engine and nothing is stored.
func (s *Service) Generate(ctx context.Context, params GenerateParams) (Session, error) {
	day := params.Date.Format(appdb.DateLayout)
	params.Policy = params.Policy.WithDefaults()

	value, err, shared := s.inflight.Do(inflightKey(day, params.Policy), func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
		defer cancel()
		return s.generate(runCtx, day, params)
	})
	if shared {
		log.Ctx(ctx).Debug().
			Str("component", "session_service").
			Str("date", day).
			Msg("Joined in-flight session generation")
	}
	if err != nil {
		return Session{}, err
	}
	return value.(Session), nil
}

// inflightKey identifies runs that would do the same work. policy must
// already have its defaults applied.
func inflightKey(day string, policy pairing.Policy) string {
	rule := ""
	if policy.Mode == pairing.ModeMixedGender {
		rule = string(policy.GenderRule)
	}
	return fmt.Sprintf("%s|%s|%d|%d|%s", day, policy.Mode, policy.MinGamesPerPlayer, policy.TeamSize, rule)
}

func (s *Service) generate(ctx context.Context, day string, params GenerateParams) (Session, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "session_service").
		Str("date", day).
		Str("mode", string(params.Policy.Mode)).
		Logger()

	players, err := s.roster.PresentPlayers(ctx, params.Date)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load roster snapshot")
		return Session{}, err
	}

	result, err := s.generator.Generate(ctx, players, params.Policy)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:       s.newID(),
		Date:     day,
		Mode:     params.Policy.Mode,
		MinGames: params.Policy.MinGamesPerPlayer,
		Status:   StatusScheduled,
		Matches:  result.Matches,
		Tally:    result.Tally,
	}
	if params.Policy.Mode == pairing.ModeMixedGender {
		session.GenderRule = string(params.Policy.GenderRule)
	}

	err = s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		row, err := txdb.Queries.CreateMatchSession(ctx, appdb.CreateMatchSessionParams{
			ID:          session.ID,
			SessionDate: session.Date,
			Mode:        string(session.Mode),
			MinGames:    int64(session.MinGames),
			GenderRule:  sql.NullString{String: session.GenderRule, Valid: session.GenderRule != ""},
		})
		if err != nil {
			return fmt.Errorf("create match session: %w", err)
		}
		session.CreatedAt = row.CreatedAt

		for i, match := range session.Matches {
			err := txdb.Queries.CreateGeneratedMatch(ctx, appdb.GeneratedMatch{
				ID:             match.ID,
				SessionID:      session.ID,
				Court:          int64(match.Court),
				Seq:            int64(i),
				Team1Player1ID: match.Team1.Player1.ID,
				Team1Player2ID: match.Team1.Player2.ID,
				Team2Player1ID: match.Team2.Player1.ID,
				Team2Player2ID: match.Team2.Player2.ID,
			})
			if err != nil {
				return fmt.Errorf("create generated match %d: %w", i, err)
			}
		}

		for _, player := range players {
			err := txdb.Queries.CreateSessionGameCount(ctx, appdb.SessionGameCount{
				SessionID: session.ID,
				ProfileID: player.ID,
				Games:     int64(session.Tally[player.ID]),
			})
			if err != nil {
				return fmt.Errorf("create game count for %s: %w", player.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to persist generated session")
		return Session{}, err
	}

	logger.Info().
		Str("session_id", session.ID).
		Int("match_count", len(session.Matches)).
		Msg("Stored generated session")
	return session, nil
}

// Get loads a session with its matches and tally.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	row, err := s.db.Queries.GetMatchSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return s.load(ctx, s.db.Queries, row)
}

// ListByDate returns the sessions generated for a day, oldest first.
func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]Session, error) {
	day := date.Format(appdb.DateLayout)
	rows, err := s.db.Queries.ListMatchSessionsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", day, err)
	}

	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		session, err := s.load(ctx, s.db.Queries, row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (s *Service) load(ctx context.Context, q *appdb.Queries, row appdb.MatchSession) (Session, error) {
	session := sessionFromRow(row)

	counts, err := q.ListSessionGameCounts(ctx, row.ID)
	if err != nil {
		return Session{}, fmt.Errorf("load game counts for %s: %w", row.ID, err)
	}
	session.Tally = lo.SliceToMap(counts, func(c appdb.SessionGameCount) (string, int) {
		return c.ProfileID, int(c.Games)
	})

	stored, err := q.ListGeneratedMatches(ctx, row.ID)
	if err != nil {
		return Session{}, fmt.Errorf("load matches for %s: %w", row.ID, err)
	}

	players := make(map[string]pairing.Player)
	lookup := func(id string) (pairing.Player, error) {
		if p, ok := players[id]; ok {
			return p, nil
		}
		profile, err := q.GetProfile(ctx, id)
		if err != nil {
			return pairing.Player{}, fmt.Errorf("load profile %s: %w", id, err)
		}
		p := pairing.Player{
			ID:      profile.ID,
			Name:    profile.Name,
			Tier:    pairing.NormalizeLevel(profile.SkillCode.String, profile.SkillLevel.String),
			Gender:  pairing.ParseGender(profile.Gender.String),
			Present: true,
		}
		players[id] = p
		return p, nil
	}

	session.Matches = make([]pairing.Match, 0, len(stored))
	for _, m := range stored {
		ids := [4]string{m.Team1Player1ID, m.Team1Player2ID, m.Team2Player1ID, m.Team2Player2ID}
		var four [4]pairing.Player
		for i, id := range ids {
			if four[i], err = lookup(id); err != nil {
				return Session{}, err
			}
		}
		session.Matches = append(session.Matches, pairing.Match{
			ID:    m.ID,
			Court: int(m.Court),
			Team1: pairing.Team{Player1: four[0], Player2: four[1]},
			Team2: pairing.Team{Player1: four[2], Player2: four[3]},
		})
	}
	return session, nil
}

func sessionFromRow(row appdb.MatchSession) Session {
	return Session{
		ID:                 row.ID,
		Date:               row.SessionDate,
		Mode:               pairing.Mode(row.Mode),
		MinGames:           int(row.MinGames),
		GenderRule:         row.GenderRule.String,
		Status:             Status(row.Status),
		CancellationReason: row.CancellationReason.String,
		CreatedAt:          row.CreatedAt,
	}
}

// Transition moves a session to a new status. The reason is only stored for
// cancellations.
func (s *Service) Transition(ctx context.Context, id string, to Status, reason string) (Session, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "session_service").
		Str("session_id", id).
		Str("to_status", string(to)).
		Logger()

	var updated appdb.MatchSession
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		current, err := txdb.Queries.GetMatchSession(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
			}
			return fmt.Errorf("load session %s: %w", id, err)
		}

		from := Status(current.Status)
		if !lo.Contains(allowedTransitions[to], from) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
		}

		if err := transition(ctx, txdb.Queries, id, from, to, reason); err != nil {
			return err
		}

		updated, err = txdb.Queries.GetMatchSession(ctx, id)
		if err != nil {
			return fmt.Errorf("reload session %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrSessionNotFound) {
			logger.Debug().Err(err).Msg("Rejected session status change")
		} else {
			logger.Error().Err(err).Msg("Failed to change session status")
		}
		return Session{}, err
	}

	logger.Info().Msg("Changed session status")
	return s.load(ctx, s.db.Queries, updated)
}

func transition(ctx context.Context, q *appdb.Queries, id string, from, to Status, reason string) error {
	arg := appdb.TransitionMatchSessionStatusParams{
		ID:           id,
		FromStatuses: []string{string(from)},
		ToStatus:     string(to),
	}
	if to == StatusCancelled && reason != "" {
		arg.CancellationReason = sql.NullString{String: reason, Valid: true}
	}
	changed, err := q.TransitionMatchSessionStatus(ctx, arg)
	if err != nil {
		return fmt.Errorf("update session %s status: %w", id, err)
	}
	if changed == 0 {
		return fmt.Errorf("%w: %s is no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}

// CloseStaleSessions settles sessions from days before now: ongoing sessions
// are completed and scheduled ones are cancelled. It returns how many
// sessions were changed.
func (s *Service) CloseStaleSessions(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now()
	}
	today := now.UTC().Format(appdb.DateLayout)
	logger := log.Ctx(ctx).With().
		Str("component", "session_service").
		Str("before", today).
		Logger()

	var closed int
	err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
		stale, err := txdb.Queries.ListStaleMatchSessions(ctx, today)
		if err != nil {
			return fmt.Errorf("list stale sessions: %w", err)
		}
		for _, row := range stale {
			from := Status(row.Status)
			to, reason := StatusCancelled, StaleSessionReason
			if from == StatusOngoing {
				to, reason = StatusCompleted, ""
			}
			if err := transition(ctx, txdb.Queries, row.ID, from, to, reason); err != nil {
				return err
			}
			logger.Debug().
				Str("session_id", row.ID).
				Str("from_status", string(from)).
				Str("to_status", string(to)).
				Msg("Closed stale session")
			closed++
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to close stale sessions")
		return 0, err
	}

	logger.Info().Int("closed_sessions", closed).Msg("Closed stale sessions")
	return closed, nil
}
