package notify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecipient marks a send rejected because of the address itself.
// It says nothing about the provider's health.
var ErrInvalidRecipient = errors.New("invalid recipient")

// NormalizePhone converts a user-entered phone number to E.164.
//
// "+" or "00" prefixes are taken as already international. Anything else is
// treated as national: a leading trunk "0" is dropped and countryCode is
// prepended, unless the digits already start with it and are longer than a
// national number.
func NormalizePhone(raw, countryCode string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty phone number", ErrInvalidRecipient)
	}

	international := strings.HasPrefix(s, "+")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", fmt.Errorf("%w: invalid character %q in phone number", ErrInvalidRecipient, r)
		}
	}
	digits := b.String()

	if !international && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		international = true
	}

	if !international {
		cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
		switch {
		case cc == "":
			return "", fmt.Errorf("%w: phone %q has no country code", ErrInvalidRecipient, raw)
		case strings.HasPrefix(digits, cc) && len(digits) > 10:
		default:
			digits = cc + strings.TrimLeft(digits, "0")
		}
	}

	if len(digits) < 8 || len(digits) > 15 {
		return "", fmt.Errorf("%w: phone %q has an invalid length", ErrInvalidRecipient, raw)
	}
	return "+" + digits, nil
}
