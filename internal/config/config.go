package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Notification channel drivers.
const (
	NotifyDriverRedis = "redis"
	NotifyDriverSNS   = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
// It is constructed once in the binaries and injected into constructors;
// nothing reads the environment after Load returns.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	OTPExpiry          time.Duration

	NotifyDriver  string // "redis" | "sns"
	RedisURL      string
	EmailQueueKey string
	SNSTopicARN   string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	UserOTPs string
	MealLogs string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "8000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			UserOTPs: getEnv("DYNAMO_TABLE_USER_OTPS", "user_otps"),
			MealLogs: getEnv("DYNAMO_TABLE_MEAL_LOGS", "meal_logs"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "mealtrack-profile-pictures"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTokenExpiry:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_MINUTES", 7*24*60)) * time.Minute,
		OTPExpiry:          time.Duration(getEnvInt("OTP_EXPIRE_MINUTES", 5)) * time.Minute,

		NotifyDriver:  getEnv("NOTIFY_DRIVER", NotifyDriverRedis),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		EmailQueueKey: getEnv("EMAIL_QUEUE_KEY", "mealtrack:emails"),
		SNSTopicARN:   getEnv("SNS_TOPIC_ARN", ""),

		SMTPHost:     getEnv("SMTP_SERVER", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPFrom:     getEnv("EMAIL", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("EMAIL_PASSWORD", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
