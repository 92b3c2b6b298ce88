package booking

import (
	"context"

	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// ConflictCheck runs inside the booking-creation transaction against the
// barber's locked bookings for the requested date.
type ConflictCheck func(existing []models.Booking) error

type Repository interface {
	// -------- Catalog --------
	GetBarber(
		ctx context.Context,
		id uint,
	) (*models.Barber, error)

	GetService(
		ctx context.Context,
		id uint,
	) (*models.Service, error)

	// -------- Client --------
	GetOrCreateClient(
		ctx context.Context,
		name string,
		phone string,
		email string,
	) (*models.Client, error)

	// -------- Availability --------

	// ListBookingsByBarberAndDate returns every booking on the date,
	// cancelled included, with Service preloaded.
	ListBookingsByBarberAndDate(
		ctx context.Context,
		barberID uint,
		date string,
	) ([]models.Booking, error)

	ListStaffBreaksForDate(
		ctx context.Context,
		barberID uint,
		date string,
	) ([]models.StaffBreak, error)

	// -------- Booking (create / state change) --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
		check ConflictCheck,
	) error

	GetBooking(
		ctx context.Context,
		id uint,
	) (*models.Booking, error)

	UpdateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	ListBookings(
		ctx context.Context,
		date string,
		barberID *uint,
	) ([]models.Booking, error)
}
