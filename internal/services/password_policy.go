package services

import (
	"fmt"
	"strings"
	"unicode"
)

// bcrypt ignores everything past 72 bytes, so longer secrets are rejected outright.
const maxPasswordBytes = 72

// PasswordPolicy describes the strength rules applied to new passwords.
type PasswordPolicy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy requires eight characters mixing upper case, lower case, digits and symbols.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Validate returns ErrWeakPassword describing the first unmet rule.
func (p PasswordPolicy) Validate(password string) error {
	if len(password) > maxPasswordBytes {
		return ErrWeakPassword.WithMessage(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}

	minLength := p.MinLength
	if minLength <= 0 {
		minLength = 1
	}
	if len([]rune(password)) < minLength {
		return ErrWeakPassword.WithMessage(fmt.Sprintf("Password must be at least %d characters", minLength))
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var missing []string
	if p.RequireUpper && !upper {
		missing = append(missing, "an uppercase letter")
	}
	if p.RequireLower && !lower {
		missing = append(missing, "a lowercase letter")
	}
	if p.RequireDigit && !digit {
		missing = append(missing, "a digit")
	}
	if p.RequireSymbol && !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return ErrWeakPassword.WithMessage("Password must contain " + strings.Join(missing, ", "))
	}
	return nil
}
