package auth

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// ValidatePassword enforces the registration password policy.
func ValidatePassword(password, confirm string) error {
	if n := utf8.RuneCountInString(password); n < 8 || n > 32 {
		return errors.New("Password must be between 8 and 32 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r) && !unicode.IsLetter(r) && !unicode.IsNumber(r):
			special = true
		}
	}
	for _, c := range []struct {
		ok   bool
		name string
	}{
		{upper, "uppercase letter"},
		{lower, "lowercase letter"},
		{digit, "numeric digit"},
		{special, "special character"},
	} {
		if !c.ok {
			return fmt.Errorf("Password must contain at least one %s", c.name)
		}
	}

	if password != confirm {
		return errors.New("Passwords do not match")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
