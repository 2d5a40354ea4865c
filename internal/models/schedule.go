package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
)

// Sessions lists the bookable slots of a day in generation order.
var Sessions = []Session{SessionMorning, SessionAfternoon}

func (s Session) Valid() bool {
	return s == SessionMorning || s == SessionAfternoon
}

type ScheduleStatus string

const (
	ScheduleOpen   ScheduleStatus = "open"
	ScheduleFull   ScheduleStatus = "full"
	ScheduleClosed ScheduleStatus = "closed"
)

// ScheduleEntry is one bookable date+session slot with a capacity bound.
// (Date, Session) is the natural key; Code is shared by both sessions of the
// same date once generated.
type ScheduleEntry struct {
	gorm.Model
	Date                 time.Time      `json:"date" gorm:"uniqueIndex:idx_date_session"`
	Session              Session        `json:"session" gorm:"uniqueIndex:idx_date_session"`
	StartTime            string         `json:"start_time"`
	EndTime              string         `json:"end_time"`
	MaxCapacity          int            `json:"max_capacity"`
	CurrentRegistrations int            `json:"current_registrations"`
	Status               ScheduleStatus `json:"status"`
	Code                 *string        `json:"code"`
}

// Key returns the canonical lock/lookup key for the entry.
func (e *ScheduleEntry) Key() string {
	return EntryKey(e.Date, e.Session)
}

func EntryKey(date time.Time, session Session) string {
	return fmt.Sprintf("%s|%s", DateOnly(date).Format("2006-01-02"), session)
}

// AvailableCapacity never reports negative headroom even when an operator
// override has pushed the counter past the bound.
func (e *ScheduleEntry) AvailableCapacity() int {
	free := e.MaxCapacity - e.CurrentRegistrations
	if free < 0 {
		return 0
	}
	return free
}
