// Package rut formats and validates Chilean national identity numbers (RUN/RUT).
package rut

import (
	"strings"
	"unicode"
)

const (
	maxCleanLen = 10
	maxBodyLen  = 9
)

// Clean keeps digits and the letter K, uppercased.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'k' || r == 'K':
			b.WriteRune('K')
		}
	}
	return b.String()
}

// Format returns the display form body-dv, e.g. "123456789" -> "12345678-9".
func Format(s string) string {
	clean := Clean(s)
	if len(clean) > maxCleanLen {
		clean = clean[:maxCleanLen]
	}
	if len(clean) <= 1 {
		return clean
	}
	body := clean[:len(clean)-1]
	dv := clean[len(clean)-1:]
	if len(body) > maxBodyLen {
		body = body[len(body)-maxBodyLen:]
	}
	return body + "-" + dv
}

// Validate reports whether the check digit matches the modulo-11 digit of the body.
func Validate(s string) bool {
	clean := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(clean) < 2 {
		return false
	}
	body := clean[:len(clean)-1]
	dv := strings.ToUpper(clean[len(clean)-1:])

	expected, ok := CheckDigit(body)
	if !ok {
		return false
	}
	return expected == dv
}

// CheckDigit computes the modulo-11 check character for body. ok is false when
// body is empty or contains anything but digits.
func CheckDigit(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	sum := 0
	mul := 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return "", false
		}
		sum += int(c-'0') * mul
		mul++
		if mul > 7 {
			mul = 2
		}
	}
	switch d := 11 - sum%11; d {
	case 11:
		return "0", true
	case 10:
		return "K", true
	default:
		return string(rune('0' + d)), true
	}
}

// Normalize lowercases s and strips dots, dashes and whitespace so formatted
// and raw identifiers compare equal.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
