package dto

import "time"

type BookingListDTO struct {
	ID            uint       `json:"id"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	Status        string     `json:"status"`
	BarberID      uint       `json:"barber_id"`
	BarberName    string     `json:"barber_name"`
	ServiceID     uint       `json:"service_id"`
	ServiceName   string     `json:"service_name"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerEmail string     `json:"customer_email"`
	ReminderSent  *time.Time `json:"reminder_sent"`
}
