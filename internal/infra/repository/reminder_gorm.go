package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/barbershop-booking/internal/domain/booking"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
	"github.com/BruksfildServices01/barbershop-booking/internal/reminder"
)

type ReminderGormRepository struct {
	db *gorm.DB
}

func NewReminderGormRepository(db *gorm.DB) *ReminderGormRepository {
	return &ReminderGormRepository{db: db}
}

// --------------------------------------------------
// Templates
// --------------------------------------------------

func (r *ReminderGormRepository) ListActiveTemplates(
	ctx context.Context,
) ([]models.ReminderTemplate, error) {

	var templates []models.ReminderTemplate
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("trigger_hours DESC, id ASC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *ReminderGormRepository) ListPendingBookings(
	ctx context.Context,
	fromDate string,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("status = ? AND date >= ?", string(domain.StatusConfirmed), fromDate).
		Order("date ASC, time ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *ReminderGormRepository) GetBarber(
	ctx context.Context,
	id uint,
) (*models.Barber, error) {

	var barber models.Barber
	if err := r.db.WithContext(ctx).First(&barber, id).Error; err != nil {
		return nil, err
	}
	return &barber, nil
}

func (r *ReminderGormRepository) MarkReminderSent(
	ctx context.Context,
	bookingID uint,
	at time.Time,
) error {

	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND reminder_sent IS NULL", bookingID).
		Update("reminder_sent", at).Error
}

// --------------------------------------------------
// Logs
// --------------------------------------------------

func (r *ReminderGormRepository) ListLogsByBooking(
	ctx context.Context,
	bookingID uint,
) ([]models.ReminderLog, error) {

	var logs []models.ReminderLog
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// CreateLog relies on idx_reminder_logs_sent_once; a second sent row for the
// same booking and template comes back as reminder.ErrAlreadySent.
func (r *ReminderGormRepository) CreateLog(
	ctx context.Context,
	log *models.ReminderLog,
) error {

	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return reminder.ErrAlreadySent
		}
		return err
	}
	return nil
}

// Compile-time check
var _ reminder.Store = (*ReminderGormRepository)(nil)
