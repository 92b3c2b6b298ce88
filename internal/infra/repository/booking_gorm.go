package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Catalog
// --------------------------------------------------

func (r *BookingGormRepository) GetBarber(
	ctx context.Context,
	id uint,
) (*models.Barber, error) {

	var barber models.Barber
	if err := r.db.WithContext(ctx).First(&barber, id).Error; err != nil {
		return nil, err
	}
	return &barber, nil
}

func (r *BookingGormRepository) GetService(
	ctx context.Context,
	id uint,
) (*models.Service, error) {

	var service models.Service
	if err := r.db.WithContext(ctx).First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// --------------------------------------------------
// Client
// --------------------------------------------------

func (r *BookingGormRepository) GetOrCreateClient(
	ctx context.Context,
	name string,
	phone string,
	email string,
) (*models.Client, error) {

	var client models.Client
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&client).Error

	if err == nil {
		if email != "" && client.Email == "" {
			client.Email = email
			if err := r.db.WithContext(ctx).Save(&client).Error; err != nil {
				return nil, err
			}
		}
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client = models.Client{
		Name:  name,
		Phone: phone,
		Email: email,
	}

	if err := r.db.WithContext(ctx).Create(&client).Error; err != nil {
		// Concurrent insert of the same phone: use the winner's row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&client).Error; err != nil {
				return nil, err
			}
			return &client, nil
		}
		return nil, err
	}

	return &client, nil
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *BookingGormRepository) ListBookingsByBarberAndDate(
	ctx context.Context,
	barberID uint,
	date string,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Preload("Service").
		Where("barber_id = ? AND date = ?", barberID, date).
		Order("time ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}

	return bookings, nil
}

// ListStaffBreaksForDate returns one-off breaks on the date plus every
// recurring break that falls on it.
func (r *BookingGormRepository) ListStaffBreaksForDate(
	ctx context.Context,
	barberID uint,
	date string,
) ([]models.StaffBreak, error) {

	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, err
	}

	var rows []models.StaffBreak
	if err := r.db.WithContext(ctx).
		Where("barber_id = ? AND (date = ? OR date = '' OR date IS NULL)", barberID, date).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, br := range rows {
		if domain.BreakApplies(br.Date, br.DayOfWeek, day) {
			out = append(out, br)
		}
	}
	return out, nil
}

// --------------------------------------------------
// Booking
// --------------------------------------------------

// CreateBooking serialises creation per barber: the barber row is locked
// (SELECT ... FOR UPDATE on postgres) before the day's bookings are re-read
// and handed to check.
func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
	check domain.ConflictCheck,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var barber models.Barber
		if err := r.forUpdate(tx).First(&barber, b.BarberID).Error; err != nil {
			return err
		}

		var existing []models.Booking
		if err := r.forUpdate(tx).
			Preload("Service").
			Where("barber_id = ? AND date = ? AND status <> ?", b.BarberID, b.Date, string(domain.StatusCancelled)).
			Find(&existing).Error; err != nil {
			return err
		}

		if check != nil {
			if err := check(existing); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(b).Error
	})
}

func (r *BookingGormRepository) GetBooking(
	ctx context.Context,
	id uint,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).
		Preload("Barber").
		Preload("Service").
		First(&b, id).Error; err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *BookingGormRepository) UpdateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(b).Error
}

func (r *BookingGormRepository) ListBookings(
	ctx context.Context,
	date string,
	barberID *uint,
) ([]models.Booking, error) {

	q := r.db.WithContext(ctx).
		Preload("Barber").
		Preload("Service")

	if date != "" {
		q = q.Where("date = ?", date)
	}
	if barberID != nil {
		q = q.Where("barber_id = ?", *barberID)
	}

	var bookings []models.Booking
	if err := q.Order("date ASC, time ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}

	return bookings, nil
}

// sqlite has no row locks; its writer lock already serialises the transaction.
func (r *BookingGormRepository) forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// Compile-time check
var _ domain.Repository = (*BookingGormRepository)(nil)
