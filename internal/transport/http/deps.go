package http

import (
	"context"
	"io"
	"time"

	"github.com/mealtrack-api/internal/application/auth"
	"github.com/mealtrack-api/internal/domain"
	jwtinfra "github.com/mealtrack-api/internal/infrastructure/jwt"
)

// UserRepository is the minimal contract the router requires from a user store.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Activate(ctx context.Context, userID string) error
}

// OTPRepository is the minimal contract the router requires from the
// one-time-code store. Put must atomically supersede any prior code for the
// same user; DeleteAllForUser must be idempotent.
type OTPRepository interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Get(ctx context.Context, userID string) (*domain.OneTimeCode, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

// MealRepository is the minimal contract the router requires from a meal store.
type MealRepository interface {
	Put(ctx context.Context, m *domain.MealLog) error
	Get(ctx context.Context, mealID string) (*domain.MealLog, error)
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.MealLog, error)
	Update(ctx context.Context, mealID string, updates map[string]interface{}) error
	Delete(ctx context.Context, mealID string) error
}

// ObjectStore is the minimal contract the router requires from object storage.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    UserRepository
	OTPRepo     OTPRepository
	MealRepo    MealRepository
	ObjectStore ObjectStore
	Notifier    auth.Notifier
	JWTProvider *jwtinfra.Provider
	OTPExpiry   time.Duration
}
