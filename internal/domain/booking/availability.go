package booking

import "time"

const DateLayout = "2006-01-02"

type AvailabilityInput struct {
	BarberID  uint
	Date      string
	ServiceID *uint
}

// ParseDate parses a "YYYY-MM-DD" calendar date at midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// BreakApplies reports whether a break defined by date / dayOfWeek falls on
// the given calendar day.
func BreakApplies(breakDate string, dayOfWeek *int, day time.Time) bool {
	if breakDate != "" {
		return breakDate == day.Format(DateLayout)
	}
	if dayOfWeek != nil {
		return *dayOfWeek == int(day.Weekday())
	}
	return true
}
