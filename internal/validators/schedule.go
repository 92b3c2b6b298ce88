package validators

import "time"

// IsDate reports whether s is a "YYYY-MM-DD" calendar date.
func IsDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsHM reports whether s is a zero-padded "HH:MM" wall-clock time.
func IsHM(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
