package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// ErrAlreadySent is returned by Store.CreateLog when a sent log already
// exists for the same booking and template.
var ErrAlreadySent = errors.New("reminder already sent")

// Store defines the storage operations the scheduler needs.
type Store interface {
	ListActiveTemplates(ctx context.Context) ([]models.ReminderTemplate, error)

	// ListPendingBookings returns confirmed bookings dated on or after
	// fromDate ("YYYY-MM-DD").
	ListPendingBookings(ctx context.Context, fromDate string) ([]models.Booking, error)

	GetBarber(ctx context.Context, id uint) (*models.Barber, error)

	ListLogsByBooking(ctx context.Context, bookingID uint) ([]models.ReminderLog, error)
	CreateLog(ctx context.Context, log *models.ReminderLog) error

	// MarkReminderSent stamps reminder_sent when it is still empty.
	MarkReminderSent(ctx context.Context, bookingID uint, at time.Time) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}
