package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/timezone"
)

type CompleteBooking struct {
	repo  domain.Repository
	cache cache.Availability
	audit *audit.Dispatcher
	loc   *time.Location
}

func NewCompleteBooking(
	repo domain.Repository,
	c cache.Availability,
	audit *audit.Dispatcher,
	loc *time.Location,
) *CompleteBooking {
	if c == nil {
		c = cache.Nop{}
	}
	return &CompleteBooking{
		repo:  repo,
		cache: c,
		audit: audit,
		loc:   loc,
	}
}

func (uc *CompleteBooking) Execute(
	ctx context.Context,
	userID *uint,
	bookingID uint,
) (*models.Booking, error) {

	b, err := loadBooking(ctx, uc.repo, bookingID)
	if err != nil {
		return nil, err
	}

	if err := domain.Complete(b, timezone.NowIn(uc.loc)); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	uc.cache.InvalidateBarberDate(ctx, b.BarberID, b.Date)

	uc.audit.Dispatch(audit.Event{
		UserID:   userID,
		Action:   "booking_completed",
		Entity:   "booking",
		EntityID: &b.ID,
	})

	return b, nil
}
