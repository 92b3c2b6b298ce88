package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/timezone"
)

type CancelBooking struct {
	repo  domain.Repository
	cache cache.Availability
	audit *audit.Dispatcher
	loc   *time.Location
}

func NewCancelBooking(
	repo domain.Repository,
	c cache.Availability,
	audit *audit.Dispatcher,
	loc *time.Location,
) *CancelBooking {
	if c == nil {
		c = cache.Nop{}
	}
	return &CancelBooking{
		repo:  repo,
		cache: c,
		audit: audit,
		loc:   loc,
	}
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	userID *uint,
	bookingID uint,
) (*models.Booking, error) {

	b, err := loadBooking(ctx, uc.repo, bookingID)
	if err != nil {
		return nil, err
	}

	if err := domain.Cancel(b, timezone.NowIn(uc.loc)); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("update booking: %w", err)
	}

	uc.cache.InvalidateBarberDate(ctx, b.BarberID, b.Date)

	uc.audit.Dispatch(audit.Event{
		UserID:   userID,
		Action:   "booking_cancelled",
		Entity:   "booking",
		EntityID: &b.ID,
	})

	return b, nil
}

func loadBooking(ctx context.Context, repo domain.Repository, id uint) (*models.Booking, error) {
	b, err := repo.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("booking_not_found")
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}
