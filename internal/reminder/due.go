package reminder

import (
	"fmt"
	"time"
)

// AppointmentTime combines a booking's "YYYY-MM-DD" date and "HH:MM" time into
// a wall-clock instant in loc.
func AppointmentTime(date, hm string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse appointment %q %q: %w", date, hm, err)
	}
	return t, nil
}

// IsDue reports whether now falls in the reminder window
// [appointment - triggerHours, appointment).
func IsDue(now, appointment time.Time, triggerHours int) bool {
	target := appointment.Add(-time.Duration(triggerHours) * time.Hour)
	return !now.Before(target) && now.Before(appointment)
}
