package auth

import (
	"strings"
	"unicode"

	"github.com/ccojocar/zxcvbn-go"
	"github.com/holistic/reporting-engine/generic"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
	// MinPasswordScore is the lowest accepted zxcvbn score (0-4).
	MinPasswordScore = 2
)

// ValidatePassword applies the password policy. userInputs are account
// attributes (username, email, names) the password must not resemble.
func ValidatePassword(password string, userInputs ...string) error {
	if len(password) < MinPasswordLength {
		return generic.FieldError("password", "This password is too short. It must contain at least 8 characters.")
	}
	if len(password) > MaxPasswordLength {
		return generic.FieldError("password", "Ensure this field has no more than 72 characters.")
	}
	if isNumeric(password) {
		return generic.FieldError("password", "This password is entirely numeric.")
	}

	lowered := strings.ToLower(password)
	var inputs []string
	for _, in := range userInputs {
		in = strings.ToLower(strings.TrimSpace(in))
		if in == "" {
			continue
		}
		if len(in) >= 3 && strings.Contains(lowered, in) {
			return generic.FieldError("password", "The password is too similar to the account details.")
		}
		inputs = append(inputs, in)
	}

	if zxcvbn.PasswordStrength(password, inputs).Score < MinPasswordScore {
		return generic.FieldError("password", "This password is too common or too easy to guess.")
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// HashPassword hashes with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
