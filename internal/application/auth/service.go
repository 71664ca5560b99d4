package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mealtrack-api/internal/application/otp"
	"github.com/mealtrack-api/internal/domain"
	"github.com/mealtrack-api/internal/pkg/id"
	"github.com/mealtrack-api/internal/pkg/security"
	"github.com/mealtrack-api/internal/pkg/validate"
)

// Service orchestrates the identity lifecycle: OTP-gated registration,
// confirmation, login and token refresh.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	ConfirmOTP(ctx context.Context, email string, code int) (*domain.User, error)
	ResendOTP(ctx context.Context, email string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Activate(ctx context.Context, userID string) error
}

// Notifier is the outbound port for the asynchronous email channel.
// Delivery is at-least-once with no guarantee surfaced to the caller.
type Notifier interface {
	EnqueueVerificationEmail(ctx context.Context, email string, code int) error
}

type tokenIssuer interface {
	CreateTokens(u *domain.User) (*domain.TokenPair, error)
	RefreshTokens(refreshToken string) (*domain.TokenPair, error)
}

type service struct {
	userRepo userStore
	otpSvc   otp.Service
	notifier Notifier
	issuer   tokenIssuer
}

type ServiceDeps struct {
	UserRepo    userStore
	OTPService  otp.Service
	Notifier    Notifier
	TokenIssuer tokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo: deps.UserRepo,
		otpSvc:   deps.OTPService,
		notifier: deps.Notifier,
		issuer:   deps.TokenIssuer,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	if !validate.Email(email) {
		return nil, fmt.Errorf("invalid email format: %w", domain.ErrBadRequest)
	}
	if !security.CheckPasswordStrength(req.Password) {
		return nil, fmt.Errorf("password does not meet strength requirements: %w", domain.ErrBadRequest)
	}
	// Only NotFound means the address is free; a store fault must not let a
	// duplicate registration through.
	switch _, err := s.userRepo.GetByEmail(ctx, email); {
	case err == nil:
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("look up email: %w", domain.ErrInternal)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", domain.ErrInternal)
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         domain.RoleUser,
		IsActive:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", domain.ErrInternal)
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", domain.ErrInternal)
	}
	if err := s.otpSvc.Create(ctx, u.UserID, code); err != nil {
		return nil, err
	}
	s.enqueueVerification(ctx, u.Email, code)
	return u, nil
}

func (s *service) ConfirmOTP(ctx context.Context, email string, code int) (*domain.User, error) {
	u, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ok, err := s.otpSvc.Verify(ctx, u.UserID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("invalid or expired otp code: %w", domain.ErrInvalidCredential)
	}
	if err := s.userRepo.Activate(ctx, u.UserID); err != nil {
		return nil, fmt.Errorf("activate user: %w", domain.ErrInternal)
	}
	// The consumed code must not stay redeemable. Activation has already
	// committed, so a retry of the same confirm converges: Verify still passes,
	// Activate is idempotent, and the supersede is attempted again.
	if err := s.otpSvc.SupersedeAll(ctx, u.UserID); err != nil {
		return nil, fmt.Errorf("invalidate otp: %w", domain.ErrInternal)
	}
	u.IsActive = true
	return u, nil
}

func (s *service) ResendOTP(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	code, err := security.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", domain.ErrInternal)
	}
	if err := s.otpSvc.Create(ctx, u.UserID, code); err != nil {
		return nil, err
	}
	s.enqueueVerification(ctx, u.Email, code)
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	// Unknown email and wrong password yield the same error so callers
	// cannot enumerate registered addresses. A store fault is not "unknown".
	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("look up email: %w", domain.ErrInternal)
		}
		return nil, nil, fmt.Errorf("incorrect email or password: %w", domain.ErrUnauthorized)
	}
	if !security.VerifyPassword(password, u.PasswordHash) {
		return nil, nil, fmt.Errorf("incorrect email or password: %w", domain.ErrUnauthorized)
	}
	pair, err := s.issuer.CreateTokens(u)
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", domain.ErrInternal)
	}
	return u, pair, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	pair, err := s.issuer.RefreshTokens(refreshToken)
	if err != nil {
		// Normalize every issuer failure; token internals never leak.
		return nil, fmt.Errorf("could not refresh token: %w", domain.ErrUnauthorized)
	}
	return pair, nil
}

// enqueueVerification is fire-and-forget: a queue failure is logged and never
// fails the surrounding use case.
func (s *service) enqueueVerification(ctx context.Context, email string, code int) {
	if err := s.notifier.EnqueueVerificationEmail(ctx, email, code); err != nil {
		slog.Warn("failed to enqueue verification email", "email", email, "err", err)
	}
}

// lookupByEmail maps a missing user to NotFound and any other store failure
// to Internal.
func (s *service) lookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("look up email: %w", domain.ErrInternal)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
