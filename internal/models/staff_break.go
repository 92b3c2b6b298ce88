package models

import "time"

// StaffBreak blocks [StartTime, EndTime) for a barber.
//
// Date set: one-off break on that day. Date empty and DayOfWeek set: weekly
// break (0 = Sunday). Both empty: every day.
type StaffBreak struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	BarberID uint `gorm:"index" json:"barber_id"`

	Date      string `gorm:"size:10" json:"date"`
	DayOfWeek *int   `json:"day_of_week"`

	StartTime string `gorm:"size:5;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`
	Reason    string `gorm:"size:100" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
