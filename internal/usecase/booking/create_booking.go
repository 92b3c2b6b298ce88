package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/barbershop-booking/internal/audit"
	"github.com/BruksfildServices01/barbershop-booking/internal/cache"
	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/httperr"
	"github.com/BruksfildServices01/barbershop-booking/internal/metrics"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/notify"
	"github.com/BruksfildServices01/barbershop-booking/internal/validators"
)

// ======================================================
// INPUT
// ======================================================

type CreateBookingInput struct {
	BarberID  uint
	ServiceID uint

	CustomerName  string
	CustomerPhone string
	CustomerEmail string

	Date  string
	Time  string
	Notes string
}

// ======================================================
// USE CASE
// ======================================================

type CreateBooking struct {
	repo         domain.Repository
	availability *GetAvailability
	cache        cache.Availability
	audit        *audit.Dispatcher
	now          func() time.Time

	// phoneCountry completes national numbers when validating the phone.
	phoneCountry string
}

const defaultPhoneCountry = "1"

func NewCreateBooking(
	repo domain.Repository,
	availability *GetAvailability,
	c cache.Availability,
	audit *audit.Dispatcher,
) *CreateBooking {
	if c == nil {
		c = cache.Nop{}
	}
	return &CreateBooking{
		repo:         repo,
		availability: availability,
		cache:        c,
		audit:        audit,
		now:          time.Now,
		phoneCountry: defaultPhoneCountry,
	}
}

// WithPhoneCountryCode sets the country code national phone numbers are
// validated against. Empty keeps the default.
func (uc *CreateBooking) WithPhoneCountryCode(cc string) *CreateBooking {
	if cc != "" {
		uc.phoneCountry = cc
	}
	return uc
}

// WithClock replaces the wall clock, for tests.
func (uc *CreateBooking) WithClock(now func() time.Time) *CreateBooking {
	uc.now = now
	return uc
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	b, err := uc.execute(ctx, in)
	switch {
	case err == nil:
		metrics.RecordBooking("created")
	case httperr.IsBusiness(err, "time_conflict"), httperr.IsBusiness(err, "slot_unavailable"):
		metrics.RecordBooking("conflict")
	default:
		metrics.RecordBooking("rejected")
	}
	return b, err
}

func (uc *CreateBooking) execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	// --------------------------------------------------
	// 1️⃣ Dados do cliente
	// --------------------------------------------------
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))

	if in.CustomerName == "" || in.CustomerPhone == "" {
		return nil, httperr.ErrBusiness("missing_customer")
	}
	if _, err := notify.NormalizePhone(in.CustomerPhone, uc.phoneCountry); err != nil {
		return nil, httperr.ErrBusiness("invalid_phone")
	}
	if in.CustomerEmail != "" && !validators.IsEmail(in.CustomerEmail) {
		return nil, httperr.ErrBusiness("invalid_email")
	}

	// --------------------------------------------------
	// 2️⃣ Data / hora no timezone do negócio
	// --------------------------------------------------
	loc := uc.availability.loc

	day, err := domain.ParseDate(in.Date, loc)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date_or_time")
	}
	startMin, err := domain.ParseHM(in.Time)
	if err != nil {
		return nil, httperr.ErrBusiness("invalid_date_or_time")
	}
	in.Time = domain.FormatHM(startMin)

	start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
	if start.Before(uc.now().In(loc)) {
		return nil, httperr.ErrBusiness("too_soon")
	}

	// --------------------------------------------------
	// 3️⃣ Barbeiro / serviço
	// --------------------------------------------------
	barber, err := uc.repo.GetBarber(ctx, in.BarberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("barber_not_found")
		}
		return nil, fmt.Errorf("get barber: %w", err)
	}
	if !barber.Active {
		return nil, httperr.ErrBusiness("barber_not_found")
	}

	service, err := uc.repo.GetService(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.ErrBusiness("service_not_found")
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	if !service.Active {
		return nil, httperr.ErrBusiness("service_not_found")
	}

	// --------------------------------------------------
	// 4️⃣ Disponibilidade (sem cache)
	// --------------------------------------------------
	slots, err := uc.availability.Compute(ctx, domain.AvailabilityInput{
		BarberID:  barber.ID,
		Date:      in.Date,
		ServiceID: &service.ID,
	})
	if err != nil {
		return nil, err
	}
	if !contains(slots, in.Time) {
		return nil, httperr.ErrBusiness("slot_unavailable")
	}

	// --------------------------------------------------
	// 5️⃣ Cliente (get or create)
	// --------------------------------------------------
	client, err := uc.repo.GetOrCreateClient(
		ctx,
		in.CustomerName,
		in.CustomerPhone,
		in.CustomerEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create client: %w", err)
	}

	// --------------------------------------------------
	// 6️⃣ Criação com re-checagem de conflito na transação
	// --------------------------------------------------
	b := &models.Booking{
		BarberID:      barber.ID,
		ServiceID:     service.ID,
		ClientID:      &client.ID,
		Date:          in.Date,
		Time:          in.Time,
		Status:        string(domain.InitialStatus()),
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CustomerEmail: in.CustomerEmail,
		Notes:         strings.TrimSpace(in.Notes),
	}

	grid := uc.availability.grid
	duration := domain.ServiceMinutes(*service)

	check := func(existing []models.Booking) error {
		blocked := domain.Occupancy{}
		for _, e := range existing {
			// Already validated on insert; an unparseable row cannot collide.
			_ = grid.BlockBooking(blocked, e)
		}
		if !grid.Fits(startMin, duration, blocked) {
			return httperr.ErrBusiness("time_conflict")
		}
		return nil
	}

	if err := uc.repo.CreateBooking(ctx, b, check); err != nil {
		return nil, err
	}

	uc.cache.InvalidateBarberDate(ctx, b.BarberID, b.Date)

	// --------------------------------------------------
	// 7️⃣ Auditoria
	// --------------------------------------------------
	uc.audit.Dispatch(audit.Event{
		Action:   "booking_created",
		Entity:   "booking",
		EntityID: &b.ID,
		Metadata: map[string]any{
			"barber_id":  b.BarberID,
			"service_id": b.ServiceID,
			"date":       b.Date,
			"time":       b.Time,
		},
	})

	b.Barber = *barber
	b.Service = *service

	return b, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
