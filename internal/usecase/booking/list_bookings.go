package booking

import (
	"context"
	"fmt"
	"time"

	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/dto"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
)

type ListBookings struct {
	repo domain.Repository
	loc  *time.Location
}

func NewListBookings(
	repo domain.Repository,
	loc *time.Location,
) *ListBookings {
	return &ListBookings{
		repo: repo,
		loc:  loc,
	}
}

// Execute lists bookings ordered by date and time. An empty date lists every
// date; a nil barberID lists every barber.
func (uc *ListBookings) Execute(
	ctx context.Context,
	date string,
	barberID *uint,
) ([]dto.BookingListDTO, error) {

	if date != "" {
		if _, err := domain.ParseDate(date, uc.loc); err != nil {
			return nil, httperr.ErrBusiness("invalid_date")
		}
	}

	bookings, err := uc.repo.ListBookings(ctx, date, barberID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	out := make([]dto.BookingListDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, dto.BookingListDTO{
			ID:            b.ID,
			Date:          b.Date,
			Time:          b.Time,
			Status:        b.Status,
			BarberID:      b.BarberID,
			BarberName:    b.Barber.Name,
			ServiceID:     b.ServiceID,
			ServiceName:   b.Service.Name,
			CustomerName:  b.CustomerName,
			CustomerPhone: b.CustomerPhone,
			CustomerEmail: b.CustomerEmail,
			ReminderSent:  b.ReminderSent,
		})
	}

	return out, nil
}
