// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/codr1/Shuttleicious/internal/pairing"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

// PairingConfig holds the defaults applied when a generate request leaves a
// policy field empty.
type PairingConfig struct {
	DefaultMode     string `yaml:"default_mode"`
	DefaultMinGames int    `yaml:"default_min_games"`
	// MaxMinGames is the largest min_games a generate request may ask for.
	MaxMinGames int    `yaml:"max_min_games"`
	GenderRule  string `yaml:"gender_rule"`
	// RandomSeed makes random and mixed-gender runs reproducible. Zero seeds from the clock.
	RandomSeed uint64 `yaml:"random_seed"`
}

type SchedulerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	SessionCloseoutCron string `yaml:"session_closeout_cron"`
}

// RateLimitConfig throttles match generation per client address.
type RateLimitConfig struct {
	Enabled            bool          `yaml:"enabled"`
	GenerateCooldown   time.Duration `yaml:"generate_cooldown"`
	GenerateMaxPerHour int           `yaml:"generate_max_per_hour"`
	TrustProxy         bool          `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Pairing PairingConfig `yaml:"pairing"`

	Scheduler SchedulerConfig `yaml:"scheduler"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	if filename := os.Getenv("DATABASE_FILENAME"); filename != "" {
		cfg.Database.Filename = filename
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills in defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Pairing.DefaultMode == "" {
		c.Pairing.DefaultMode = string(pairing.ModeByLevel)
	}
	if c.Pairing.DefaultMinGames == 0 {
		c.Pairing.DefaultMinGames = 1
	}
	if c.Pairing.MaxMinGames == 0 {
		c.Pairing.MaxMinGames = 10
	}
	if c.Pairing.GenderRule == "" {
		c.Pairing.GenderRule = string(pairing.GenderRuleMixed)
	}
	if c.Scheduler.SessionCloseoutCron == "" {
		c.Scheduler.SessionCloseoutCron = "5 0 * * *"
	}
	if c.RateLimit.GenerateCooldown == 0 {
		c.RateLimit.GenerateCooldown = 2 * time.Second
	}
	if c.RateLimit.GenerateMaxPerHour == 0 {
		c.RateLimit.GenerateMaxPerHour = 60
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := pairing.ParseMode(c.Pairing.DefaultMode); err != nil {
		return fmt.Errorf("pairing default_mode: %w", err)
	}
	if c.Pairing.DefaultMinGames < 1 {
		return fmt.Errorf("pairing default_min_games must be at least 1")
	}
	if c.Pairing.MaxMinGames < 1 || c.Pairing.MaxMinGames > pairing.MaxMinGamesPerPlayer {
		return fmt.Errorf("pairing max_min_games must be between 1 and %d", pairing.MaxMinGamesPerPlayer)
	}
	if c.Pairing.DefaultMinGames > c.Pairing.MaxMinGames {
		return fmt.Errorf("pairing default_min_games must not exceed max_min_games")
	}
	if _, err := pairing.ParseGenderRule(c.Pairing.GenderRule); err != nil {
		return fmt.Errorf("pairing gender_rule: %w", err)
	}

	if _, err := cron.ParseStandard(c.Scheduler.SessionCloseoutCron); err != nil {
		return fmt.Errorf("scheduler session_closeout_cron: %w", err)
	}

	if c.RateLimit.GenerateCooldown < 0 {
		return fmt.Errorf("rate_limit generate_cooldown must not be negative")
	}
	if c.RateLimit.GenerateMaxPerHour < 0 {
		return fmt.Errorf("rate_limit generate_max_per_hour must not be negative")
	}

	return nil
}

// DefaultPolicy returns the pairing policy configured as the default.
func (c *Config) DefaultPolicy() pairing.Policy {
	mode, _ := pairing.ParseMode(c.Pairing.DefaultMode)
	rule, _ := pairing.ParseGenderRule(c.Pairing.GenderRule)
	return pairing.Policy{
		Mode:              mode,
		MinGamesPerPlayer: c.Pairing.DefaultMinGames,
		TeamSize:          pairing.DefaultTeamSize,
		GenderRule:        rule,
	}
}
