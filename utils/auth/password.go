package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("password does not match")
)

const (
	// DefaultCost is the bcrypt cost for operator passwords. 12 keeps a
	// hash around a quarter second on current hardware.
	DefaultCost       = 12
	MinPasswordLength = 8
)

// HashPassword bcrypt-hashes an operator password, rejecting short ones
// before spending the hash work.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// VerifyPassword compares a candidate password against a stored hash and
// maps bcrypt's mismatch error to ErrPasswordMismatch.
func VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}

// IsPasswordValid reports whether the password meets the length floor.
func IsPasswordValid(password string) bool {
	return len(password) >= MinPasswordLength
}
