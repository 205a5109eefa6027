package assessment

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseInt reads the leading base-10 integer of s, the way browser form
// handling does: leading whitespace is skipped, an optional sign is
// accepted, and parsing stops at the first non-digit ("12.7" is 12,
// "80 mmHg" is 80). Values beyond the int range saturate at the int
// bounds. ok is false when no digits are found.
func ParseInt(s string) (n int, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return clamp(s[:end]), true
		}
		return 0, false
	}
	return v, true
}

// ParseFloat reads the longest leading decimal number of s
// ("24.5kg" is 24.5, ".5" is 0.5, "1e2" is 100). ok is false when no
// number is found.
func ParseFloat(s string) (f float64, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}

	intDigits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		intDigits++
	}

	fracDigits := 0
	if end < len(s) && s[end] == '.' {
		j := end + 1
		for j < len(s) && isDigit(s[j]) {
			j++
			fracDigits++
		}
		if intDigits > 0 || fracDigits > 0 {
			end = j
		}
	}

	if intDigits == 0 && fracDigits == 0 {
		return 0, false
	}

	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		j := end + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			end = j
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clamp(digits string) int {
	if strings.HasPrefix(digits, "-") {
		return math.MinInt
	}
	return math.MaxInt
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
