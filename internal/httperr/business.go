package httperr

import (
	"errors"
	"net/http"
	"strings"
)

// BusinessError carries a stable, client-facing code such as
// "slot_unavailable" or "barber_not_found".
type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// BusinessCode returns the code of a BusinessError anywhere in err's chain.
func BusinessCode(err error) (string, bool) {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}

// conflictCodes são regras de agenda, não erro de entrada.
var conflictCodes = map[string]bool{
	"time_conflict":     true,
	"slot_unavailable":  true,
	"invalid_state":     true,
	"cycle_in_progress": true,
}

// StatusFor maps a business code to its HTTP status.
func StatusFor(code string) int {
	switch {
	case strings.HasSuffix(code, "_not_found"):
		return http.StatusNotFound
	case conflictCodes[code]:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
