package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"image-service/internal/config"
	"image-service/pkg/database/postgres"
	"image-service/pkg/logger"
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("connecting to database")
	pool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	log.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	log.Info("migrations finished successfully")
}
