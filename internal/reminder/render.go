package reminder

import (
	"strings"
	"time"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

const (
	DefaultBarberName = "your barber"

	dateFormat = "Monday, January 2, 2006"
)

// Render substitutes {customerName}, {date}, {time} and {barberName} in
// message. Unknown placeholders are left as they are.
func Render(message string, b models.Booking, appointment time.Time, barberName string) string {
	if strings.TrimSpace(barberName) == "" {
		barberName = DefaultBarberName
	}

	r := strings.NewReplacer(
		"{customerName}", b.CustomerName,
		"{date}", appointment.Format(dateFormat),
		"{time}", b.Time,
		"{barberName}", barberName,
	)
	return r.Replace(message)
}

// Subject renders the template's subject, or a generated one when the
// template has none.
func Subject(t models.ReminderTemplate, b models.Booking, appointment time.Time, barberName string) string {
	if strings.TrimSpace(t.Subject) != "" {
		return Render(t.Subject, b, appointment, barberName)
	}
	return "Appointment reminder: " + appointment.Format(dateFormat) + " at " + b.Time
}
