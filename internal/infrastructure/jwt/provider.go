package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mealtrack-api/internal/domain"
)

// Token types carried in the claims; refresh tokens are never accepted where
// an access token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims holds the JWT payload: a sanitized identity snapshot plus the
// registered claims. The password hash is never part of the payload.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs and owns the access/refresh pair
// lifecycle. Tokens are stateless: a refresh re-mints the pair from the
// snapshot embedded in the presented refresh token.
type Provider struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewProvider(secret string, accessExpiry, refreshExpiry time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Provider{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// CreateTokens mints an access/refresh pair for the given user.
func (p *Provider) CreateTokens(u *domain.User) (*domain.TokenPair, error) {
	access, err := p.sign(u, TokenTypeAccess, p.accessExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(u, TokenTypeRefresh, p.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshTokens verifies the presented refresh token and mints a new pair
// from its embedded snapshot. Every failure mode — bad signature, expiry,
// malformed token, wrong token type — surfaces as the same generic
// ErrUnauthorized so callers cannot probe token internals.
func (p *Provider) RefreshTokens(refreshToken string) (*domain.TokenPair, error) {
	claims, err := p.parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	u := &domain.User{
		UserID:    claims.UserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      claims.Role,
		IsActive:  claims.IsActive,
	}
	return p.CreateTokens(u)
}

// VerifyAccess validates an access token and returns its claims.
// Used by the auth middleware.
func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	claims, err := p.parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

func (p *Provider) sign(u *domain.User, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

func (p *Provider) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
