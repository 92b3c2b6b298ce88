package models

import "time"

// Booking dates and times are wall-clock values in the business timezone:
// Date is "YYYY-MM-DD", Time is "HH:MM".
type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BarberID uint   `gorm:"index:idx_bookings_barber_date" json:"barber_id"`
	Barber   Barber `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"barber,omitempty"`

	ServiceID uint    `json:"service_id"`
	Service   Service `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"service,omitempty"`

	ClientID *uint  `json:"client_id"`
	Client   Client `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`

	Date string `gorm:"size:10;not null;index:idx_bookings_barber_date" json:"date"`
	Time string `gorm:"size:5;not null" json:"time"`

	Status string `gorm:"size:20;default:'confirmed';index" json:"status"`

	CustomerName  string `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone string `gorm:"size:20;not null" json:"customer_phone"`
	CustomerEmail string `gorm:"size:100" json:"customer_email"`

	Notes        string     `gorm:"size:255" json:"notes"`
	ReminderSent *time.Time `json:"reminder_sent"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
