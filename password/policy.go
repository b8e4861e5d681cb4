package password

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

// MinLength is the shortest password accepted at registration, counted in
// characters rather than bytes.
const MinLength = 8

// MaxBytes is the longest password accepted, in bytes. bcrypt refuses
// anything longer.
const MaxBytes = 72

// ErrPolicy is matched by every *PolicyError.
var ErrPolicy = errors.New("password policy violation")

// Rule names a single password policy check.
type Rule string

const (
	RuleMinLength Rule = "min_length"
	RuleMaxLength Rule = "max_length"
	RuleDigit     Rule = "digit"
	RuleLowercase Rule = "lowercase"
	RuleUppercase Rule = "uppercase"
)

var ruleMessages = map[Rule]string{
	RuleMinLength: "password must be at least 8 characters",
	RuleMaxLength: "password must be at most 72 bytes",
	RuleDigit:     "password must include a digit",
	RuleLowercase: "password must include a lowercase letter",
	RuleUppercase: "password must include an uppercase letter",
}

// PolicyError names the first rule a password failed.
type PolicyError struct {
	Rule Rule
}

func (e *PolicyError) Error() string {
	return ruleMessages[e.Rule]
}

func (e *PolicyError) Unwrap() error {
	return ErrPolicy
}

// CheckPolicy applies the rules in order (length, digit, lowercase,
// uppercase) and reports the first one that fails.
func CheckPolicy(password string) error {
	if utf8.RuneCountInString(password) < MinLength {
		return &PolicyError{Rule: RuleMinLength}
	}
	if len(password) > MaxBytes {
		return &PolicyError{Rule: RuleMaxLength}
	}

	var digit, lower, upper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}

	switch {
	case !digit:
		return &PolicyError{Rule: RuleDigit}
	case !lower:
		return &PolicyError{Rule: RuleLowercase}
	case !upper:
		return &PolicyError{Rule: RuleUppercase}
	}
	return nil
}
