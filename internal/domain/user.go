package domain

import "time"

// Role names assignable to users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	ProfilePicture string    `json:"profile_picture,omitempty" dynamodbav:"profile_picture"`
	Role           string    `json:"role" dynamodbav:"role"`
	IsActive       bool      `json:"is_active" dynamodbav:"is_active"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// FullName returns the display name used in outbound emails.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

type ConfirmOTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OTPCode int    `json:"otp_code" validate:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// TokenPair is derived data, never persisted. Both tokens embed a sanitized
// identity snapshot; a fresh pair is minted on every login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
