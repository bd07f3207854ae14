package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"image-service/internal/auth"
	"image-service/internal/catalog/postgres"
	"image-service/internal/config"
	"image-service/internal/events"
	"image-service/internal/handler"
	"image-service/internal/service"
	"image-service/internal/storage"
	localstore "image-service/internal/storage/local"
	miniostore "image-service/internal/storage/minio"
	pgclient "image-service/pkg/database/postgres"
	redisclient "image-service/pkg/database/redis"
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

	log.Info("connecting to PostgreSQL")
	pgPool, err := pgclient.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if err := pgclient.RunMigrations(ctx, pgPool); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	var store storage.Store
	switch cfg.StorageBackend {
	case "local":
		store, err = localstore.NewStore(cfg.LocalStorageDir)
	default:
		log.Info("connecting to Minio")
		store, err = miniostore.NewStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	if err != nil {
		log.Fatal("failed to initialize blob store", zap.Error(err))
	}

	var cache *redisclient.Client
	if cfg.RedisURL != "" {
		log.Info("connecting to Redis")
		cache, err = redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer cache.Close()
	}

	var sink events.Sink
	if cfg.RabbitMQURL != "" {
		log.Info("connecting to RabbitMQ")
		queue, err := events.NewClient(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer queue.Close()
		sink = queue
	}

	imagesSvc := service.NewImageService(store, postgres.NewImages(pgPool), sink, cfg.MaxPageSize, log)
	usersSvc := service.NewUserService(postgres.NewUsers(pgPool), log)

	// With a JWKS URL configured an external identity provider owns tokens;
	// otherwise the service issues and verifies its own.
	var (
		verifier auth.Verifier
		issuer   handler.TokenIssuer
	)
	if cfg.AuthJWKSURL != "" {
		verifier, err = auth.NewJWKSVerifier(cfg.AuthJWKSURL, log)
		if err != nil {
			log.Fatal("failed to initialize JWKS verifier", zap.Error(err))
		}
	} else {
		verifier = auth.NewSecretVerifier(cfg.AuthSecret)
		issuer = auth.NewIssuer(cfg.AuthSecret, cfg.AuthTokenTTL)
	}

	var metaCache handler.MetaCache
	if cache != nil {
		metaCache = cache
	}
	h := handler.New(imagesSvc, usersSvc, issuer, metaCache, cfg.MaxUploadSize, log)

	router := gin.New()
	router.Use(gin.Recovery())
	h.Routes(router, auth.Middleware(verifier))

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
