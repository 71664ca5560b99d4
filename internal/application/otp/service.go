package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mealtrack-api/internal/domain"
)

// Service manages the per-user one-time-code lifecycle:
// NONE -> ISSUED -> {VERIFIED | EXPIRED | SUPERSEDED}.
type Service interface {
	// Create issues a new code for the user, superseding any earlier one.
	Create(ctx context.Context, userID string, code int) error
	// GetLive returns the user's code if one is issued and unexpired, nil otherwise.
	GetLive(ctx context.Context, userID string) (*domain.OneTimeCode, error)
	// Verify reports whether submitted matches the user's live code.
	Verify(ctx context.Context, userID string, submitted int) (bool, error)
	// SupersedeAll invalidates every code for the user. Idempotent.
	SupersedeAll(ctx context.Context, userID string) error
}

type otpStore interface {
	Put(ctx context.Context, c *domain.OneTimeCode) error
	Get(ctx context.Context, userID string) (*domain.OneTimeCode, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo     otpStore
	userRepo userStore
	ttl      time.Duration
	now      func() time.Time
}

func NewService(repo otpStore, userRepo userStore, ttl time.Duration) Service {
	return &service{repo: repo, userRepo: userRepo, ttl: ttl, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID string, code int) error {
	if _, err := s.userRepo.Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return fmt.Errorf("load user: %w", domain.ErrInternal)
	}
	now := s.now().UTC()
	c := &domain.OneTimeCode{
		UserID:    userID,
		Code:      code,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	// The table is keyed by user_id alone, so this single write supersedes
	// any prior code atomically — two racing resends can never leave two
	// live codes for the same user.
	if err := s.repo.Put(ctx, c); err != nil {
		return fmt.Errorf("store otp: %w", domain.ErrInternal)
	}
	slog.Info("issued one-time code", "user_id", userID)
	return nil
}

func (s *service) GetLive(ctx context.Context, userID string) (*domain.OneTimeCode, error) {
	c, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	// Only a missing record means "no live code"; a store fault must never be
	// mistaken for an absent or wrong code.
	if err != nil {
		return nil, fmt.Errorf("read otp: %w", domain.ErrInternal)
	}
	// Lazy expiry: an expired record is treated as absent. The DynamoDB TTL
	// reaper removes it eventually; correctness never depends on that.
	if !c.Live(s.now()) {
		return nil, nil
	}
	return c, nil
}

func (s *service) Verify(ctx context.Context, userID string, submitted int) (bool, error) {
	c, err := s.GetLive(ctx, userID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	return c.Code == submitted, nil
}

func (s *service) SupersedeAll(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete otps: %w", domain.ErrInternal)
	}
	return nil
}
