package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/perimeterhq/tenantd/internal/audit"
	"github.com/perimeterhq/tenantd/internal/auth"
	"github.com/perimeterhq/tenantd/internal/config"
	"github.com/perimeterhq/tenantd/internal/identity"
	"github.com/perimeterhq/tenantd/internal/metrics"
	"github.com/perimeterhq/tenantd/internal/notify"
	"github.com/perimeterhq/tenantd/internal/server"
	"github.com/perimeterhq/tenantd/internal/store/postgres"
	redisstore "github.com/perimeterhq/tenantd/internal/store/redis"
	"github.com/perimeterhq/tenantd/internal/tenancy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("TENANTD_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("TENANTD_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	metrics.Init()

	// Connect to PostgreSQL and apply migrations (schema + event-type seed).
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// Connect to Redis for the operational event bus.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Core services.
	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.BootstrapKeyHash)

	platform := identity.NewKeycloakClient(
		ctx,
		cfg.Identity.BaseURL,
		cfg.Identity.TokenURL,
		cfg.Identity.ClientID,
		cfg.Identity.ClientSecret,
		log.With().Str("component", "keycloak").Logger(),
	)

	auditSvc := audit.NewService(store.Audit(), pubsub, log.With().Str("component", "audit").Logger())
	provisioner := tenancy.NewProvisioner(store.Tenants(), platform, auditSvc, log.With().Str("component", "tenancy").Logger())

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Retention sweeper with its outcome reporters.
	reporters := []audit.Reporter{
		redisstore.NewSweepReporter(pubsub, log.With().Str("component", "sweep-reporter").Logger()),
	}
	if cfg.Slack.BotToken != "" {
		slackClient := slacklib.New(cfg.Slack.BotToken)
		reporters = append(reporters, notify.NewSlackNotifier(slackClient, cfg.Slack.Channel, log.With().Str("component", "slack").Logger()))
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack sweep notifications enabled")
	}

	sweeper := audit.NewSweeper(
		auditSvc,
		cfg.Retention.Days,
		cfg.Retention.Interval,
		log.With().Str("component", "sweeper").Logger(),
		reporters...,
	)
	go sweeper.Run(ctx)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, authSvc, provisioner, auditSvc, pubsub)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
