package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"image-service/internal/config"
	"image-service/internal/events"
	"image-service/internal/worker"
	redisclient "image-service/pkg/database/redis"
	"image-service/pkg/logger"
)

const workerPoolSize = 5

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting usage accounting worker")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	log.Info("connecting to Redis")
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	log.Info("connecting to RabbitMQ")
	queue, err := events.NewClient(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer queue.Close()

	accountant := worker.NewAccountant(redisClient, log)

	msgs, err := queue.Consume()
	if err != nil {
		log.Fatal("failed to start consuming", zap.Error(err))
	}

	var wg sync.WaitGroup
	taskChan := make(chan events.Event, workerPoolSize)

	for i := 0; i < workerPoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Info("worker started", zap.Int("worker_id", workerID))

			for ev := range taskChan {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				err := accountant.Apply(ctx, ev)
				cancel()

				if err != nil {
					log.Error("failed to apply event",
						zap.Int("worker_id", workerID),
						zap.String("image_id", ev.ImageID.String()),
						zap.Error(err))
				}
			}

			log.Info("worker stopped", zap.Int("worker_id", workerID))
		}(i + 1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for msg := range msgs {
			var ev events.Event
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				log.Warn("failed to unmarshal event", zap.Error(err))
				msg.Nack(false, false) // discard invalid message
				continue
			}

			taskChan <- ev
			msg.Ack(false)
		}
	}()

	log.Info("usage accounting worker is running")
	<-sigChan
	log.Info("shutting down gracefully")

	close(taskChan)
	wg.Wait()
}
