package models

import (
	"time"

	"gorm.io/gorm"
)

// WindowID is the fixed primary key of the single registration window row.
// The window is a singleton: closing it clears its dates and flips IsOpen
// instead of deleting the row.
const WindowID uint = 1

type RegistrationWindow struct {
	gorm.Model
	IsOpen         bool       `json:"is_open"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	CapacityPerDay int        `json:"capacity_per_day"`
	Message        string     `json:"message"`
}

// Active reports whether the window is open and the given date falls inside
// its inclusive range.
func (w *RegistrationWindow) Active(date time.Time) bool {
	if !w.IsOpen || w.StartDate == nil || w.EndDate == nil {
		return false
	}
	d := DateOnly(date)
	return !d.Before(DateOnly(*w.StartDate)) && !d.After(DateOnly(*w.EndDate))
}

// DateOnly truncates a timestamp to midnight UTC so that calendar dates
// compare by value regardless of the clock component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
