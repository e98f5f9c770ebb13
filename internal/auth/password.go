// Package auth holds the credential rules and token helpers shared by the
// HTML account pages and the JSON API: password policy, lockout limits,
// JWT issuance, authenticator keys, recovery codes and one-time codes.
package auth

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// Sign-in lockout policy.
const (
	MaxFailedAttempts = 3
	LockoutDuration   = 5 * time.Minute
)

// ErrLockedOut is returned when a sign-in is attempted on a locked account.
var ErrLockedOut = errors.New("account locked out")

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword returns a user-facing message describing the first
// policy rule pw breaks, or "" when it is acceptable. A password needs at
// least MinPasswordLength characters including a digit, a lowercase
// letter, an uppercase letter and a non-alphanumeric character.
func ValidatePassword(pw string) string {
	if len([]rune(pw)) < MinPasswordLength {
		return "Password must be at least 8 characters long."
	}

	var digit, lower, upper, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			symbol = true
		}
	}

	var missing []string
	if !digit {
		missing = append(missing, "a digit")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return "Password must contain " + strings.Join(missing, ", ") + "."
	}
	return ""
}
