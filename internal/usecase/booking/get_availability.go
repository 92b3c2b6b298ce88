package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/metrics"
)

// GetAvailability returns the ascending "HH:MM" start times at which a
// service fits for a barber on a date.
type GetAvailability struct {
	repo   domain.Repository
	grid   domain.Grid
	loc    *time.Location
	cache  cache.Availability
	logger zerolog.Logger
}

func NewGetAvailability(
	repo domain.Repository,
	grid domain.Grid,
	loc *time.Location,
	c cache.Availability,
	logger zerolog.Logger,
) *GetAvailability {
	if c == nil {
		c = cache.Nop{}
	}
	return &GetAvailability{
		repo:   repo,
		grid:   grid,
		loc:    loc,
		cache:  c,
		logger: logger,
	}
}

func (uc *GetAvailability) Execute(
	ctx context.Context,
	in domain.AvailabilityInput,
) ([]string, error) {

	start := time.Now()

	if err := validateAvailabilityInput(in, uc.loc); err != nil {
		return nil, err
	}

	duration := uc.serviceMinutes(ctx, in.ServiceID)

	if slots, ok := uc.cache.Get(ctx, in.BarberID, in.Date, duration); ok {
		metrics.RecordAvailability("hit", time.Since(start))
		return slots, nil
	}

	slots, err := uc.compute(ctx, in.BarberID, in.Date, duration)
	if err != nil {
		return nil, err
	}

	uc.cache.Set(ctx, in.BarberID, in.Date, duration, slots)
	metrics.RecordAvailability("miss", time.Since(start))

	return slots, nil
}

// Compute bypasses the cache. Booking creation uses it so a stale cached
// list can never admit a taken slot.
func (uc *GetAvailability) Compute(
	ctx context.Context,
	in domain.AvailabilityInput,
) ([]string, error) {

	start := time.Now()

	if err := validateAvailabilityInput(in, uc.loc); err != nil {
		return nil, err
	}

	slots, err := uc.compute(ctx, in.BarberID, in.Date, uc.serviceMinutes(ctx, in.ServiceID))
	if err != nil {
		return nil, err
	}

	metrics.RecordAvailability("bypass", time.Since(start))
	return slots, nil
}

func (uc *GetAvailability) compute(
	ctx context.Context,
	barberID uint,
	date string,
	duration int,
) ([]string, error) {

	bookings, err := uc.repo.ListBookingsByBarberAndDate(ctx, barberID, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	breaks, err := uc.repo.ListStaffBreaksForDate(ctx, barberID, date)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}

	blocked := domain.Occupancy{}

	for _, b := range bookings {
		if err := uc.grid.BlockBooking(blocked, b); err != nil {
			uc.logger.Warn().Err(err).Uint("barber_id", barberID).Str("date", date).
				Msg("skipping booking with unparseable time")
		}
	}

	for _, br := range breaks {
		if err := uc.grid.BlockBreak(blocked, br); err != nil {
			uc.logger.Warn().Err(err).Uint("barber_id", barberID).Str("date", date).
				Msg("skipping break with unparseable time")
		}
	}

	return uc.grid.Available(duration, blocked), nil
}

// serviceMinutes falls back to the default duration when no service was
// requested or the lookup misses.
func (uc *GetAvailability) serviceMinutes(ctx context.Context, serviceID *uint) int {
	if serviceID == nil || *serviceID == 0 {
		return domain.DefaultServiceMinutes
	}

	svc, err := uc.repo.GetService(ctx, *serviceID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			uc.logger.Warn().Err(err).Uint("service_id", *serviceID).
				Msg("service lookup failed, using default duration")
		}
		return domain.DefaultServiceMinutes
	}

	return domain.ServiceMinutes(*svc)
}

func validateAvailabilityInput(in domain.AvailabilityInput, loc *time.Location) error {
	if in.BarberID == 0 || in.Date == "" {
		return httperr.ErrBusiness("missing_params")
	}
	if _, err := domain.ParseDate(in.Date, loc); err != nil {
		return httperr.ErrBusiness("invalid_date")
	}
	return nil
}
