// Package engine implements the exam registration and scheduling capacity
// engine: the registration window, schedule generation, seat assignment,
// capacity reconciliation, and the automatic lifecycle sweeps.
package engine

import (
	"log"
	"sync"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/models"
	"github.com/examdesk/exam-scheduler-api/internal/notifier"
)

// TimeSettings carries the session time bounds used when creating schedule
// entries. Zero values fall back to the defaults below.
type TimeSettings struct {
	MorningStart   string `json:"morning_start"`
	MorningEnd     string `json:"morning_end"`
	AfternoonStart string `json:"afternoon_start"`
	AfternoonEnd   string `json:"afternoon_end"`
}

var defaultTimes = TimeSettings{
	MorningStart:   "09:00",
	MorningEnd:     "12:00",
	AfternoonStart: "13:00",
	AfternoonEnd:   "16:00",
}

func (t TimeSettings) orDefaults() TimeSettings {
	if t.MorningStart == "" {
		t.MorningStart = defaultTimes.MorningStart
	}
	if t.MorningEnd == "" {
		t.MorningEnd = defaultTimes.MorningEnd
	}
	if t.AfternoonStart == "" {
		t.AfternoonStart = defaultTimes.AfternoonStart
	}
	if t.AfternoonEnd == "" {
		t.AfternoonEnd = defaultTimes.AfternoonEnd
	}
	return t
}

// bounds returns the start/end times of one session slot.
func (t TimeSettings) bounds(s models.Session) (string, string) {
	t = t.orDefaults()
	if s == models.SessionMorning {
		return t.MorningStart, t.MorningEnd
	}
	return t.AfternoonStart, t.AfternoonEnd
}

// Options tune engine defaults; the zero value is usable.
type Options struct {
	Clock                 Clock
	DefaultCapacityPerDay int
	DefaultTimes          TimeSettings
}

// Engine owns all mutations of the window, the schedule catalog, and
// registrations. Every counter read-modify-write happens under the matching
// per-entry lock inside one transaction.
type Engine struct {
	db       *gorm.DB
	clock    Clock
	locks    *entryLockTable
	validate *validator.Validate
	notifier notifier.Notifier

	// windowMu serialises mutations of the singleton window row.
	windowMu sync.Mutex

	defaultCapacityPerDay int
	defaultTimes          TimeSettings
}

func New(db *gorm.DB, n notifier.Notifier, opts Options) *Engine {
	capacity := opts.DefaultCapacityPerDay
	if capacity <= 0 {
		capacity = 20
	}
	return &Engine{
		db:                    db,
		clock:                 opts.Clock,
		locks:                 newEntryLockTable(),
		validate:              validator.New(),
		notifier:              n,
		defaultCapacityPerDay: capacity,
		defaultTimes:          opts.DefaultTimes.orDefaults(),
	}
}

// notify runs fn when a notifier is configured; delivery failures are logged
// and never fail the triggering operation.
func (e *Engine) notify(fn func(n notifier.Notifier) error) {
	if e.notifier == nil {
		return
	}
	if err := fn(e.notifier); err != nil {
		log.Printf("notifier: %v", err)
	}
}

// appendEvent records a status transition in the audit trail. Must be called
// inside the transaction that applies the transition.
func appendEvent(tx *gorm.DB, reg *models.Registration, from models.RegistrationStatus, note string) error {
	scheduleKey := ""
	if reg.AssignedDate != nil && reg.AssignedSession != nil {
		scheduleKey = models.EntryKey(*reg.AssignedDate, *reg.AssignedSession)
	}
	event := models.RegistrationEvent{
		RegistrationID: reg.ID,
		ExamineeID:     reg.ExamineeID,
		FromStatus:     from,
		ToStatus:       reg.Status,
		ScheduleKey:    scheduleKey,
		Note:           note,
	}
	return tx.Create(&event).Error
}
