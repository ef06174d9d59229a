// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Shuttleicious/internal/config"
	"github.com/codr1/Shuttleicious/internal/db"
	"github.com/codr1/Shuttleicious/internal/pairing"
	"github.com/codr1/Shuttleicious/internal/roster"
	"github.com/codr1/Shuttleicious/internal/scheduler"
	"github.com/codr1/Shuttleicious/internal/sessions"
)

const defaultConfigPath = "config/app.yaml"

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", defaultConfigPath))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)
	shutdownTimeout := time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("filename", cfg.Database.Filename).Msg("Failed to open database")
	}
	defer database.Close()

	rosterProvider, err := roster.NewProvider(database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create roster provider")
	}

	var genOpts []pairing.Option
	if cfg.Pairing.RandomSeed != 0 {
		genOpts = append(genOpts, pairing.WithSeed(cfg.Pairing.RandomSeed))
	}
	sessionService, err := sessions.NewService(database, rosterProvider, pairing.NewGenerator(genOpts...))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session service")
	}

	limiter := newGenerateLimiter(cfg)
	if limiter != nil {
		defer limiter.Close()
	}

	server := newServer(cfg, sessionService, rosterProvider, limiter)

	if cfg.Scheduler.Enabled {
		if err := startScheduler(cfg, sessionService); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("Failed to stop scheduler")
			}
		}()
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}

func startScheduler(cfg *config.Config, sessionService *sessions.Service) error {
	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		return err
	}
	if _, err := scheduler.RegisterSessionCloseoutJob(svc, sessionService, cfg.Scheduler.SessionCloseoutCron); err != nil {
		return fmt.Errorf("register session closeout job: %w", err)
	}
	return scheduler.Start()
}
