package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mealtrack-api/internal/application/auth"
	"github.com/mealtrack-api/internal/config"
	"github.com/mealtrack-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/mealtrack-api/internal/infrastructure/jwt"
	"github.com/mealtrack-api/internal/infrastructure/queue"
	s3infra "github.com/mealtrack-api/internal/infrastructure/s3"
	"github.com/mealtrack-api/internal/infrastructure/sns"
	transporthttp "github.com/mealtrack-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// S3 store for profile pictures.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	notifier := newNotifier(cfg)

	deps := &transporthttp.Deps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		OTPRepo:     dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.UserOTPs),
		MealRepo:    dynamo.NewMealRepo(dynamoClient, cfg.DynamoTables.MealLogs),
		ObjectStore: s3Store,
		Notifier:    notifier,
		JWTProvider: jwtProvider,
		OTPExpiry:   cfg.OTPExpiry,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// newNotifier selects the verification email channel: a Redis list consumed by
// the mailworker binary (default), or an SNS topic.
func newNotifier(cfg *config.Config) auth.Notifier {
	switch cfg.NotifyDriver {
	case config.NotifyDriverSNS:
		p, err := sns.NewPublisher(cfg)
		if err != nil {
			log.Fatalf("sns publisher: %v", err)
		}
		return p
	default:
		client, err := queue.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		return queue.NewPublisher(client, cfg.EmailQueueKey)
	}
}
