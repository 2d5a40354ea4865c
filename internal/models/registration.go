package models

import (
	"time"

	"gorm.io/gorm"
)

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusAssigned   RegistrationStatus = "assigned"
	StatusCompleted  RegistrationStatus = "completed"
	StatusCancelled  RegistrationStatus = "cancelled"
	StatusArchived   RegistrationStatus = "archived"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusRegistered, StatusAssigned, StatusCompleted, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// CountsTowardCapacity reports whether a registration in this status occupies
// a seat in its schedule entry.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s == StatusAssigned || s == StatusCompleted
}

// Registration is one examinee's record for the current registration cycle.
// ScheduleEntryID is the authoritative link to the booked slot; the
// (AssignedDate, AssignedSession) pair is denormalized alongside it for
// queries and reports, and the two are always updated together.
type Registration struct {
	gorm.Model
	ExamineeID      string             `json:"examinee_id" gorm:"uniqueIndex"`
	ScheduleEntryID *uint              `json:"schedule_entry_id"`
	ScheduleEntry   *ScheduleEntry     `json:"schedule_entry,omitempty" gorm:"foreignKey:ScheduleEntryID"`
	AssignedDate    *time.Time         `json:"assigned_date"`
	AssignedSession *Session           `json:"assigned_session"`
	Status          RegistrationStatus `json:"status"`
	RegisteredAt    time.Time          `json:"registered_at"`
}

// RegistrationEvent is an append-only audit row recorded in the same
// transaction as every status transition.
type RegistrationEvent struct {
	gorm.Model
	RegistrationID uint               `json:"registration_id" gorm:"index"`
	ExamineeID     string             `json:"examinee_id"`
	FromStatus     RegistrationStatus `json:"from_status"`
	ToStatus       RegistrationStatus `json:"to_status"`
	ScheduleKey    string             `json:"schedule_key"`
	Note           string             `json:"note"`
}
