package gateway

import (
	"regexp"
	"strings"
)

// CodeLength is the number of digits in an email verification code.
const CodeLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidCode reports whether code is exactly length ASCII digits.
func ValidCode(code string, length int) bool {
	if length <= 0 || len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
