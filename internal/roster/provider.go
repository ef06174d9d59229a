// internal/roster/provider.go
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	appdb "github.com/codr1/Shuttleicious/internal/db"
	"github.com/codr1/Shuttleicious/internal/pairing"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

var (
	ErrInvalidStatus   = errors.New("invalid attendance status")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SkillCode  string `json:"skill_code,omitempty"`
	SkillLevel string `json:"skill_level,omitempty"`
	Gender     string `json:"gender,omitempty"`
}

// Provider reads attendance snapshots and turns them into pairing players.
type Provider struct {
	db *appdb.DB
}

func NewProvider(database *appdb.DB) (*Provider, error) {
	if database == nil {
		return nil, errors.New("roster provider requires a database")
	}
	return &Provider{db: database}, nil
}

// PresentPlayers returns everyone marked present on date. Skill fields and
// gender are normalized here so the pairing engine only sees clean values.
func (p *Provider) PresentPlayers(ctx context.Context, date time.Time) ([]pairing.Player, error) {
	day := date.Format(appdb.DateLayout)
	rows, err := p.db.Queries.ListPresentPlayers(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list present players for %s: %w", day, err)
	}

	players := lo.Map(rows, func(row appdb.ListPresentPlayersRow, _ int) pairing.Player {
		return pairing.Player{
			ID:      row.ProfileID,
			Name:    row.Name,
			Tier:    pairing.NormalizeLevel(row.SkillCode.String, row.SkillLevel.String),
			Gender:  pairing.ParseGender(row.Gender.String),
			Present: true,
		}
	})

	log.Ctx(ctx).Debug().
		Str("component", "roster_provider").
		Str("date", day).
		Int("present_players", len(players)).
		Msg("Loaded roster snapshot")
	return players, nil
}

// RecordAttendance sets a profile's attendance status for date.
func (p *Provider) RecordAttendance(ctx context.Context, profileID string, date time.Time, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case StatusPresent, StatusAbsent, StatusLate:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if _, err := p.db.Queries.GetProfile(ctx, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
		}
		return fmt.Errorf("load profile %s: %w", profileID, err)
	}

	_, err := p.db.Queries.UpsertAttendance(ctx, appdb.UpsertAttendanceParams{
		ProfileID:  profileID,
		AttendedOn: date.Format(appdb.DateLayout),
		Status:     status,
	})
	if err != nil {
		return fmt.Errorf("record attendance for %s: %w", profileID, err)
	}
	return nil
}

// SaveProfile creates or updates a member profile. Raw skill fields are kept
// as entered; normalization happens when the roster is read.
func (p *Provider) SaveProfile(ctx context.Context, profile Profile) (Profile, error) {
	profile.ID = strings.TrimSpace(profile.ID)
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.ID == "" {
		return Profile{}, fmt.Errorf("%w: id is required", ErrInvalidProfile)
	}
	if profile.Name == "" {
		return Profile{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if raw := strings.TrimSpace(profile.Gender); raw != "" {
		gender := pairing.ParseGender(raw)
		if !gender.Known() {
			return Profile{}, fmt.Errorf("%w: unrecognized gender %q", ErrInvalidProfile, profile.Gender)
		}
		profile.Gender = string(gender)
	}

	row, err := p.db.Queries.UpsertProfile(ctx, appdb.UpsertProfileParams{
		ID:         profile.ID,
		Name:       profile.Name,
		SkillCode:  nullString(profile.SkillCode),
		SkillLevel: nullString(profile.SkillLevel),
		Gender:     nullString(profile.Gender),
	})
	if err != nil {
		return Profile{}, fmt.Errorf("save profile %s: %w", profile.ID, err)
	}
	return profileFromRow(row), nil
}

// ListProfiles returns every member profile ordered by name.
func (p *Provider) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := p.db.Queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return lo.Map(rows, func(row appdb.Profile, _ int) Profile {
		return profileFromRow(row)
	}), nil
}

func profileFromRow(row appdb.Profile) Profile {
	return Profile{
		ID:         row.ID,
		Name:       row.Name,
		SkillCode:  row.SkillCode.String,
		SkillLevel: row.SkillLevel.String,
		Gender:     row.Gender.String,
	}
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
