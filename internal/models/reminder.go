package models

import "time"

const (
	ReminderTypeSMS   = "sms"
	ReminderTypeEmail = "email"

	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

// ReminderTemplate message placeholders: {customerName}, {date}, {time},
// {barberName}. Subject is only used by email templates.
type ReminderTemplate struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:100" json:"name"`
	Type         string `gorm:"size:10;not null" json:"type"`
	TriggerHours int    `gorm:"not null" json:"trigger_hours"`
	Message      string `gorm:"type:text;not null" json:"message"`
	Subject      string `gorm:"size:200" json:"subject"`
	IsActive     bool   `gorm:"index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReminderLog is append-only. The partial unique index allows any number of
// failed attempts but at most one sent row per (booking, template).
type ReminderLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	BookingID  uint `gorm:"not null;index;uniqueIndex:idx_reminder_logs_sent_once,where:status = 'sent'" json:"booking_id"`
	TemplateID uint `gorm:"not null;uniqueIndex:idx_reminder_logs_sent_once,where:status = 'sent'" json:"template_id"`

	Type         string     `gorm:"size:10;not null" json:"type"`
	Recipient    string     `gorm:"size:100" json:"recipient"`
	Status       string     `gorm:"size:10;not null" json:"status"`
	SentAt       *time.Time `json:"sent_at"`
	ErrorMessage string     `gorm:"size:255" json:"error_message"`

	CreatedAt time.Time `json:"created_at"`
}
