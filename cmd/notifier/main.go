package main

import (
	"context"
	"os/signal"
	"syscall"

	"planthealth/internal/config"
	"planthealth/internal/logger"
	"planthealth/internal/notifier"
	"planthealth/internal/pgmq"
	"planthealth/internal/pubsub"
	"planthealth/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	pgmqClient := pgmq.New(pool)
	reminderRepo := repository.NewReminderRepo(pool)

	publisher, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}

	if err := notifier.Run(ctx, cfg, logger, pgmqClient, publisher, reminderRepo); err != nil {
		logger.Fatal().Msgf("Reminder notifier failed: %v", err)
	}

	logger.Info().Msg("Reminder notifier stopped gracefully")
}
