// Package security implements the credential policy: password hashing and
// verification, the strength predicate, and one-time-passcode generation.
package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the floor enforced by CheckPasswordStrength.
const MinPasswordLength = 8

// HashPassword returns a salted bcrypt hash of the plaintext. Two calls with
// the same input produce different hashes.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored hash.
// A malformed hash is treated as a mismatch, never an error.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckPasswordStrength is a pure predicate: at least MinPasswordLength
// characters with an upper-case letter, a lower-case letter and a digit.
func CheckPasswordStrength(plain string) bool {
	if len(plain) < MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// GenerateOTP returns a cryptographically sourced six-digit code,
// uniformly distributed over [100000, 999999].
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, fmt.Errorf("generate otp: %w", err)
	}
	return int(n.Int64()) + 100000, nil
}
