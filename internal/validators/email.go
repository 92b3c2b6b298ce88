package validators

import (
	"net/mail"
	"strings"
)

// IsEmail checks syntax only: a single bare address with a dotted domain.
func IsEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
