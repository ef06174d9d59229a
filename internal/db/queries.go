package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format attendance and session dates are stored in.
const DateLayout = "2006-01-02"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type Profile struct {
	ID         string
	Name       string
	SkillCode  sql.NullString
	SkillLevel sql.NullString
	Gender     sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Attendance struct {
	ID         int64
	ProfileID  string
	AttendedOn string
	Status     string
}

type MatchSession struct {
	ID                 string
	SessionDate        string
	Mode               string
	MinGames           int64
	GenderRule         sql.NullString
	Status             string
	CancellationReason sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type GeneratedMatch struct {
	ID             string
	SessionID      string
	Court          int64
	Seq            int64
	Team1Player1ID string
	Team1Player2ID string
	Team2Player1ID string
	Team2Player2ID string
}

type SessionGameCount struct {
	SessionID string
	ProfileID string
	Games     int64
}

const profileColumns = "id, name, skill_code, skill_level, gender, created_at, updated_at"

func scanProfile(row interface{ Scan(...interface{}) error }) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Name, &p.SkillCode, &p.SkillLevel, &p.Gender, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type UpsertProfileParams struct {
	ID         string
	Name       string
	SkillCode  sql.NullString
	SkillLevel sql.NullString
	Gender     sql.NullString
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) (Profile, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO profiles (id, name, skill_code, skill_level, gender)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    skill_code = excluded.skill_code,
    skill_level = excluded.skill_level,
    gender = excluded.gender,
    updated_at = CURRENT_TIMESTAMP
RETURNING `+profileColumns,
		arg.ID, arg.Name, arg.SkillCode, arg.SkillLevel, arg.Gender,
	)
	return scanProfile(row)
}

func (q *Queries) GetProfile(ctx context.Context, id string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	return scanProfile(row)
}

func (q *Queries) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type UpsertAttendanceParams struct {
	ProfileID  string
	AttendedOn string
	Status     string
}

func (q *Queries) UpsertAttendance(ctx context.Context, arg UpsertAttendanceParams) (Attendance, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO attendances (profile_id, attended_on, status)
VALUES (?, ?, ?)
ON CONFLICT (profile_id, attended_on) DO UPDATE SET
    status = excluded.status,
    updated_at = CURRENT_TIMESTAMP
RETURNING id, profile_id, attended_on, status`,
		arg.ProfileID, arg.AttendedOn, arg.Status,
	)
	var a Attendance
	err := row.Scan(&a.ID, &a.ProfileID, &a.AttendedOn, &a.Status)
	return a, err
}

type ListPresentPlayersRow struct {
	ProfileID  string
	Name       string
	SkillCode  sql.NullString
	SkillLevel sql.NullString
	Gender     sql.NullString
}

// ListPresentPlayers returns the profiles marked present on attendedOn in check-in order.
func (q *Queries) ListPresentPlayers(ctx context.Context, attendedOn string) ([]ListPresentPlayersRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT p.id, p.name, p.skill_code, p.skill_level, p.gender
FROM attendances a
JOIN profiles p ON p.id = a.profile_id
WHERE a.attended_on = ? AND a.status = 'present'
ORDER BY a.id`, attendedOn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListPresentPlayersRow
	for rows.Next() {
		var i ListPresentPlayersRow
		if err := rows.Scan(&i.ProfileID, &i.Name, &i.SkillCode, &i.SkillLevel, &i.Gender); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const matchSessionColumns = "id, session_date, mode, min_games, gender_rule, status, cancellation_reason, created_at, updated_at"

func scanMatchSession(row interface{ Scan(...interface{}) error }) (MatchSession, error) {
	var s MatchSession
	err := row.Scan(&s.ID, &s.SessionDate, &s.Mode, &s.MinGames, &s.GenderRule, &s.Status, &s.CancellationReason, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type CreateMatchSessionParams struct {
	ID          string
	SessionDate string
	Mode        string
	MinGames    int64
	GenderRule  sql.NullString
}

func (q *Queries) CreateMatchSession(ctx context.Context, arg CreateMatchSessionParams) (MatchSession, error) {
	row := q.db.QueryRowContext(ctx, `
INSERT INTO match_sessions (id, session_date, mode, min_games, gender_rule)
VALUES (?, ?, ?, ?, ?)
RETURNING `+matchSessionColumns,
		arg.ID, arg.SessionDate, arg.Mode, arg.MinGames, arg.GenderRule,
	)
	return scanMatchSession(row)
}

func (q *Queries) GetMatchSession(ctx context.Context, id string) (MatchSession, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+matchSessionColumns+" FROM match_sessions WHERE id = ?", id)
	return scanMatchSession(row)
}

func (q *Queries) ListMatchSessionsByDate(ctx context.Context, sessionDate string) ([]MatchSession, error) {
	return q.listMatchSessions(ctx, "SELECT "+matchSessionColumns+" FROM match_sessions WHERE session_date = ? ORDER BY created_at, id", sessionDate)
}

// ListStaleMatchSessions returns sessions dated before the given day that were never completed or cancelled.
func (q *Queries) ListStaleMatchSessions(ctx context.Context, before string) ([]MatchSession, error) {
	return q.listMatchSessions(ctx, "SELECT "+matchSessionColumns+` FROM match_sessions
WHERE session_date < ? AND status IN ('scheduled', 'ongoing')
ORDER BY session_date, id`, before)
}

func (q *Queries) listMatchSessions(ctx context.Context, query string, args ...interface{}) ([]MatchSession, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MatchSession
	for rows.Next() {
		s, err := scanMatchSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type TransitionMatchSessionStatusParams struct {
	ID                 string
	FromStatuses       []string
	ToStatus           string
	CancellationReason sql.NullString
}

// TransitionMatchSessionStatus moves a session to ToStatus only if its current
// status is one of FromStatuses. It returns the number of rows changed.
func (q *Queries) TransitionMatchSessionStatus(ctx context.Context, arg TransitionMatchSessionStatusParams) (int64, error) {
	if len(arg.FromStatuses) == 0 {
		return 0, fmt.Errorf("at least one source status is required")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(arg.FromStatuses)), ", ")
	args := []interface{}{arg.ToStatus, arg.CancellationReason, arg.ID}
	for _, status := range arg.FromStatuses {
		args = append(args, status)
	}

	result, err := q.db.ExecContext(ctx, `
UPDATE match_sessions
SET status = ?,
    cancellation_reason = COALESCE(?, cancellation_reason),
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) CreateGeneratedMatch(ctx context.Context, arg GeneratedMatch) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO generated_matches (id, session_id, court, seq, team1_player1_id, team1_player2_id, team2_player1_id, team2_player2_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.SessionID, arg.Court, arg.Seq,
		arg.Team1Player1ID, arg.Team1Player2ID, arg.Team2Player1ID, arg.Team2Player2ID,
	)
	return err
}

func (q *Queries) ListGeneratedMatches(ctx context.Context, sessionID string) ([]GeneratedMatch, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, session_id, court, seq, team1_player1_id, team1_player2_id, team2_player1_id, team2_player2_id
FROM generated_matches
WHERE session_id = ?
ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GeneratedMatch
	for rows.Next() {
		var m GeneratedMatch
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Court, &m.Seq, &m.Team1Player1ID, &m.Team1Player2ID, &m.Team2Player1ID, &m.Team2Player2ID); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) CreateSessionGameCount(ctx context.Context, arg SessionGameCount) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO session_game_counts (session_id, profile_id, games) VALUES (?, ?, ?)",
		arg.SessionID, arg.ProfileID, arg.Games,
	)
	return err
}

func (q *Queries) ListSessionGameCounts(ctx context.Context, sessionID string) ([]SessionGameCount, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT session_id, profile_id, games FROM session_game_counts WHERE session_id = ? ORDER BY profile_id",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SessionGameCount
	for rows.Next() {
		var c SessionGameCount
		if err := rows.Scan(&c.SessionID, &c.ProfileID, &c.Games); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
