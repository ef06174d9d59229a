package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := New(filepath.Join(t.TempDir(), "queries.db"))
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

func mustProfile(t *testing.T, database *DB, id, name string) {
	t.Helper()
	_, err := database.Queries.UpsertProfile(context.Background(), UpsertProfileParams{
		ID:   id,
		Name: name,
	})
	if err != nil {
		t.Fatalf("upsert profile %s: %v", id, err)
	}
}

func TestEnsureForeignKeysEnabledDSN(t *testing.T) {
	cases := map[string]string{
		"club.db":            "club.db?_fk=1",
		"club.db?cache=true": "club.db?cache=true&_fk=1",
		"club.db?_fk=0":      "club.db?_fk=0",
	}
	for in, want := range cases {
		if got := ensureForeignKeysEnabledDSN(in); got != want {
			t.Fatalf("ensureForeignKeysEnabledDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpsertProfileUpdatesExistingRow(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	mustProfile(t, database, "p1", "Ana")
	updated, err := database.Queries.UpsertProfile(ctx, UpsertProfileParams{
		ID:        "p1",
		Name:      "Ana Lim",
		SkillCode: sql.NullString{String: "B2", Valid: true},
		Gender:    sql.NullString{String: "F", Valid: true},
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Ana Lim" || updated.SkillCode.String != "B2" {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	profiles, err := database.Queries.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	if _, err := database.Queries.GetProfile(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListPresentPlayersOnlyReturnsPresentInCheckInOrder(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		mustProfile(t, database, id, "Player "+id)
	}
	attendance := []UpsertAttendanceParams{
		{ProfileID: "p3", AttendedOn: "2026-03-07", Status: "present"},
		{ProfileID: "p1", AttendedOn: "2026-03-07", Status: "present"},
		{ProfileID: "p2", AttendedOn: "2026-03-07", Status: "late"},
		{ProfileID: "p4", AttendedOn: "2026-03-07", Status: "absent"},
		{ProfileID: "p2", AttendedOn: "2026-03-08", Status: "present"},
	}
	for _, arg := range attendance {
		if _, err := database.Queries.UpsertAttendance(ctx, arg); err != nil {
			t.Fatalf("upsert attendance: %v", err)
		}
	}

	rows, err := database.Queries.ListPresentPlayers(ctx, "2026-03-07")
	if err != nil {
		t.Fatalf("list present players: %v", err)
	}
	if len(rows) != 2 || rows[0].ProfileID != "p3" || rows[1].ProfileID != "p1" {
		t.Fatalf("unexpected present players: %+v", rows)
	}

	// Re-marking keeps the original check-in position.
	if _, err := database.Queries.UpsertAttendance(ctx, UpsertAttendanceParams{ProfileID: "p3", AttendedOn: "2026-03-07", Status: "absent"}); err != nil {
		t.Fatalf("update attendance: %v", err)
	}
	rows, err = database.Queries.ListPresentPlayers(ctx, "2026-03-07")
	if err != nil {
		t.Fatalf("list present players: %v", err)
	}
	if len(rows) != 1 || rows[0].ProfileID != "p1" {
		t.Fatalf("unexpected present players after update: %+v", rows)
	}
}

func TestUpsertAttendanceRejectsUnknownStatus(t *testing.T) {
	database := newTestDB(t)
	mustProfile(t, database, "p1", "Ana")

	_, err := database.Queries.UpsertAttendance(context.Background(), UpsertAttendanceParams{
		ProfileID:  "p1",
		AttendedOn: "2026-03-07",
		Status:     "maybe",
	})
	if err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestTransitionMatchSessionStatus(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	session, err := database.Queries.CreateMatchSession(ctx, CreateMatchSessionParams{
		ID:          "s1",
		SessionDate: "2026-03-07",
		Mode:        "random",
		MinGames:    1,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != "scheduled" {
		t.Fatalf("status = %q", session.Status)
	}

	changed, err := database.Queries.TransitionMatchSessionStatus(ctx, TransitionMatchSessionStatusParams{
		ID:           "s1",
		FromStatuses: []string{"ongoing"},
		ToStatus:     "completed",
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected no rows changed from the wrong status, got %d", changed)
	}

	changed, err = database.Queries.TransitionMatchSessionStatus(ctx, TransitionMatchSessionStatusParams{
		ID:                 "s1",
		FromStatuses:       []string{"scheduled", "ongoing"},
		ToStatus:           "cancelled",
		CancellationReason: sql.NullString{String: "rain", Valid: true},
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 row changed, got %d", changed)
	}

	reloaded, err := database.Queries.GetMatchSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if reloaded.Status != "cancelled" || reloaded.CancellationReason.String != "rain" {
		t.Fatalf("unexpected session: %+v", reloaded)
	}

	if _, err := database.Queries.TransitionMatchSessionStatus(ctx, TransitionMatchSessionStatusParams{ID: "s1", ToStatus: "ongoing"}); err == nil {
		t.Fatal("expected error without source statuses")
	}
}

func TestListStaleMatchSessions(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	sessions := []CreateMatchSessionParams{
		{ID: "old", SessionDate: "2026-03-01", Mode: "random", MinGames: 1},
		{ID: "today", SessionDate: "2026-03-07", Mode: "random", MinGames: 1},
		{ID: "done", SessionDate: "2026-02-28", Mode: "by_level", MinGames: 1},
	}
	for _, arg := range sessions {
		if _, err := database.Queries.CreateMatchSession(ctx, arg); err != nil {
			t.Fatalf("create session %s: %v", arg.ID, err)
		}
	}
	if _, err := database.Queries.TransitionMatchSessionStatus(ctx, TransitionMatchSessionStatusParams{
		ID:           "done",
		FromStatuses: []string{"scheduled"},
		ToStatus:     "cancelled",
	}); err != nil {
		t.Fatalf("cancel session: %v", err)
	}

	stale, err := database.Queries.ListStaleMatchSessions(ctx, "2026-03-07")
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("unexpected stale sessions: %+v", stale)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	mustProfile(t, database, "p1", "Ana")

	sentinel := errors.New("boom")
	err := database.RunInTx(ctx, func(txdb *DB) error {
		if _, err := txdb.Queries.CreateMatchSession(ctx, CreateMatchSessionParams{
			ID:          "s1",
			SessionDate: "2026-03-07",
			Mode:        "random",
			MinGames:    1,
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if _, err := database.Queries.GetMatchSession(ctx, "s1"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected rolled back session, got %v", err)
	}
}

func TestEnsureWriteLockingDSN(t *testing.T) {
	got := ensureWriteLockingDSN("club.db?_fk=1&_busy_timeout=100")
	want := "club.db?_fk=1&_busy_timeout=100&_txlock=immediate"
	if got != want {
		t.Fatalf("ensureWriteLockingDSN = %q, want %q", got, want)
	}
}
