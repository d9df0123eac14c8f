package password

import (
	"math"
	"strings"
	"unicode"
)

// Checker decides whether a candidate password is strong enough. userInputs
// carries strings derived from the account (username, email) that should
// not make up the password.
type Checker interface {
	IsStrong(password string, userInputs []string) bool
}

// NoopChecker accepts every password.
type NoopChecker struct{}

// IsStrong always returns true.
func (NoopChecker) IsStrong(string, []string) bool { return true }

// ScoreChecker estimates guessing entropy and maps it to a 0..4 score.
// Passwords scoring below MinScore are rejected.
type ScoreChecker struct {
	MinScore int
}

// IsStrong reports whether Score(password) reaches MinScore.
func (c ScoreChecker) IsStrong(password string, userInputs []string) bool {
	return Score(password, userInputs) >= c.MinScore
}

// Score returns 0 (trivial) to 4 (very strong). Repeated runs, sequential
// runs and embedded user inputs reduce the estimate.
func Score(password string, userInputs []string) int {
	reduced := password
	lower := strings.ToLower(password)
	for _, in := range userInputs {
		in = strings.ToLower(strings.TrimSpace(in))
		if len(in) < 3 {
			continue
		}
		if local, _, ok := strings.Cut(in, "@"); ok && len(local) >= 3 {
			lower = strings.ReplaceAll(lower, local, "")
		}
		lower = strings.ReplaceAll(lower, in, "")
	}
	if len(lower) < len(password) {
		reduced = lower
	}

	bits := entropyBits(reduced)
	switch {
	case bits < 28:
		return 0
	case bits < 36:
		return 1
	case bits < 60:
		return 2
	case bits < 80:
		return 3
	default:
		return 4
	}
}

func entropyBits(s string) float64 {
	var lower, upper, digit, symbol bool
	effective := 0
	var prev rune
	run := 0

	for i, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}

		if i > 0 && (r == prev || r == prev+1 || r == prev-1) {
			run++
		} else {
			run = 0
		}
		// Characters continuing a repeat or sequence count at a third.
		if run < 2 {
			effective += 3
		} else {
			effective++
		}
		prev = r
	}

	pool := 0
	if lower {
		pool += 26
	}
	if upper {
		pool += 26
	}
	if digit {
		pool += 10
	}
	if symbol {
		pool += 33
	}
	if pool == 0 {
		return 0
	}

	return float64(effective) / 3 * math.Log2(float64(pool))
}

// PolicyChecker enforces explicit composition rules.
type PolicyChecker struct {
	MinLength        int
	RequireUpper     bool
	RequireLower     bool
	RequireDigit     bool
	RequireSymbol    bool
	ForbidUserInputs bool
}

// IsStrong reports whether password satisfies every enabled rule.
func (c PolicyChecker) IsStrong(password string, userInputs []string) bool {
	if len([]rune(password)) < c.MinLength {
		return false
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
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			symbol = true
		}
	}
	if (c.RequireUpper && !upper) || (c.RequireLower && !lower) ||
		(c.RequireDigit && !digit) || (c.RequireSymbol && !symbol) {
		return false
	}

	if c.ForbidUserInputs {
		lowered := strings.ToLower(password)
		for _, in := range userInputs {
			in = strings.ToLower(strings.TrimSpace(in))
			if in != "" && strings.Contains(lowered, in) {
				return false
			}
		}
	}
	return true
}
