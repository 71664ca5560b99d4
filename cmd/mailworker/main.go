package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mealtrack-api/internal/config"
	"github.com/mealtrack-api/internal/infrastructure/queue"
	"github.com/mealtrack-api/internal/infrastructure/smtp"
)

// mailworker drains the verification email queue and delivers over SMTP.
// Run it alongside the API when NOTIFY_DRIVER=redis.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := queue.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	worker := queue.NewWorker(client, cfg.EmailQueueKey, smtp.NewMailer(cfg))

	log.Printf("Mail worker consuming %q", cfg.EmailQueueKey)
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("worker error: %v", err)
	}
	log.Println("Mail worker stopped")
}
