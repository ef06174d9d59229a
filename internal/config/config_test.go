package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Shuttleicious/internal/pairing"
)

const validConfig = `
app:
  name: Shuttleicious
  port: 8080
database:
  driver: sqlite
  filename: data/club.db
pairing:
  default_mode: random
  default_min_games: 2
scheduler:
  enabled: true
rate_limit:
  enabled: true
  generate_cooldown: 3s
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Environment != "development" {
		t.Fatalf("environment = %q", cfg.App.Environment)
	}
	if cfg.Scheduler.SessionCloseoutCron == "" {
		t.Fatal("expected default closeout cron")
	}

	if cfg.Pairing.MaxMinGames != 10 {
		t.Fatalf("max min games = %d", cfg.Pairing.MaxMinGames)
	}
	if cfg.RateLimit.GenerateCooldown != 3*time.Second {
		t.Fatalf("generate cooldown = %v", cfg.RateLimit.GenerateCooldown)
	}
	if cfg.RateLimit.GenerateMaxPerHour != 60 {
		t.Fatalf("generate max per hour = %d", cfg.RateLimit.GenerateMaxPerHour)
	}

	policy := cfg.DefaultPolicy()
	if policy.Mode != pairing.ModeRandom || policy.MinGamesPerPlayer != 2 {
		t.Fatalf("unexpected default policy: %+v", policy)
	}
	if policy.GenderRule != pairing.GenderRuleMixed {
		t.Fatalf("gender rule = %q", policy.GenderRule)
	}
}

func TestLoadDatabaseFilenameFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DATABASE_FILENAME", "/tmp/override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Filename != "/tmp/override.db" {
		t.Fatalf("filename = %q", cfg.Database.Filename)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app name is required"},
		{name: "missing port", mutate: func(c *Config) { c.App.Port = 0 }, wantErr: "app port is required"},
		{name: "unsupported driver", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: "unsupported database driver"},
		{name: "unknown mode", mutate: func(c *Config) { c.Pairing.DefaultMode = "swiss" }, wantErr: "default_mode"},
		{name: "negative min games", mutate: func(c *Config) { c.Pairing.DefaultMinGames = -1 }, wantErr: "default_min_games"},
		{name: "max min games above engine cap", mutate: func(c *Config) { c.Pairing.MaxMinGames = pairing.MaxMinGamesPerPlayer + 1 }, wantErr: "max_min_games"},
		{name: "default above max", mutate: func(c *Config) { c.Pairing.MaxMinGames = 1 }, wantErr: "default_min_games must not exceed"},
		{name: "unknown gender rule", mutate: func(c *Config) { c.Pairing.GenderRule = "any" }, wantErr: "gender_rule"},
		{name: "negative cooldown", mutate: func(c *Config) { c.RateLimit.GenerateCooldown = -time.Second }, wantErr: "generate_cooldown"},
		{name: "bad cron", mutate: func(c *Config) { c.Scheduler.SessionCloseoutCron = "every night" }, wantErr: "session_closeout_cron"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validConfig))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
