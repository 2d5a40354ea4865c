package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/metrics"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// assignMode distinguishes the operator override path from the hard-enforced
// self-service/bulk paths. Both run under the per-entry lock; only the
// enforced paths refuse to overbook.
type assignMode struct {
	enforceCapacity bool
	createMissing   bool
	metricPath      string
}

var (
	operatorAssign = assignMode{enforceCapacity: false, createMissing: true, metricPath: "operator"}
	enforcedAssign = assignMode{enforceCapacity: true, createMissing: false, metricPath: "self"}
)

// AssignOptions carry optional overrides for an assignment.
type AssignOptions struct {
	// Status replaces the default "assigned" target status.
	Status models.RegistrationStatus
	Note   string
}

const assignRetries = 3

// Assign binds a registration to a session on the operator path. The target
// entry is created on demand from current window settings, and a full session
// does not reject the assignment: operators may overbook on purpose.
func (e *Engine) Assign(ctx context.Context, registrationID uint, date time.Time, session models.Session, opts AssignOptions) (*models.Registration, error) {
	return e.assignOne(ctx, registrationID, date, session, opts, operatorAssign)
}

// SelfAssign binds a registration to a session on the examinee-facing path.
// The entry must already exist, must not be closed, and must have free
// capacity.
func (e *Engine) SelfAssign(ctx context.Context, registrationID uint, date time.Time, session models.Session) (*models.Registration, error) {
	return e.assignOne(ctx, registrationID, date, session, AssignOptions{}, enforcedAssign)
}

// Reschedule moves a single registration to another session under the same
// capacity enforcement as the self-service path.
func (e *Engine) Reschedule(ctx context.Context, registrationID uint, date time.Time, session models.Session) (*models.Registration, error) {
	return e.assignOne(ctx, registrationID, date, session, AssignOptions{Note: "rescheduled"}, enforcedAssign)
}

func (e *Engine) assignOne(ctx context.Context, registrationID uint, date time.Time, session models.Session, opts AssignOptions, mode assignMode) (*models.Registration, error) {
	if !session.Valid() {
		return nil, fmt.Errorf("%w: unknown session %q", ErrValidation, session)
	}
	targetStatus := models.StatusAssigned
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, opts.Status)
		}
		targetStatus = opts.Status
	}
	date = models.DateOnly(date)
	newKey := models.EntryKey(date, session)

	// The previous entry's lock is needed too, but which entry that is can
	// only be learned by reading the registration. Read, lock both keys, then
	// re-check under the lock; retry when a concurrent call moved it.
	for attempt := 0; attempt < assignRetries; attempt++ {
		var probe models.Registration
		if err := e.db.WithContext(ctx).First(&probe, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: id %d", ErrRegistrationNotFound, registrationID)
			}
			return nil, fmt.Errorf("load registration: %w", err)
		}

		keys := []string{newKey}
		oldKey := ""
		if probe.AssignedDate != nil && probe.AssignedSession != nil {
			oldKey = models.EntryKey(*probe.AssignedDate, *probe.AssignedSession)
			keys = append(keys, oldKey)
		}

		unlock := e.locks.lock(keys...)
		reg, moved, err := e.assignLocked(ctx, registrationID, oldKey, date, session, targetStatus, opts.Note, mode)
		unlock()
		if moved {
			// Lost a race with a concurrent reassignment; take the locks again.
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.AssignmentsTotal.WithLabelValues(mode.metricPath, string(session)).Inc()
		return reg, nil
	}
	return nil, fmt.Errorf("%w: registration %d kept moving", ErrConcurrencyConflict, registrationID)
}

// assignLocked performs the transactional read-modify-write. The bool result
// reports that the registration's entry changed since oldKey was observed and
// the caller must retry with fresh locks.
func (e *Engine) assignLocked(ctx context.Context, registrationID uint, oldKey string, date time.Time, session models.Session, targetStatus models.RegistrationStatus, note string, mode assignMode) (*models.Registration, bool, error) {
	var reg models.Registration
	moved := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, registrationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrRegistrationNotFound, registrationID)
			}
			return err
		}

		currentKey := ""
		if reg.AssignedDate != nil && reg.AssignedSession != nil {
			currentKey = models.EntryKey(*reg.AssignedDate, *reg.AssignedSession)
		}
		if currentKey != oldKey {
			moved = true
			return nil
		}

		if err := checkAssignable(reg.Status, mode); err != nil {
			return err
		}

		entry, err := e.findOrCreateEntry(tx, date, session, mode.createMissing)
		if err != nil {
			return err
		}
		if mode.enforceCapacity && entry.Status == models.ScheduleClosed {
			return fmt.Errorf("%w: session %s is closed", ErrScheduleNotFound, entry.Key())
		}

		sameEntry := reg.ScheduleEntryID != nil && *reg.ScheduleEntryID == entry.ID

		if mode.enforceCapacity && !sameEntry && entry.AvailableCapacity() < 1 {
			metrics.CapacityRejectionsTotal.Inc()
			return fmt.Errorf("%w: %s has no free seats", ErrCapacityExceeded, entry.Key())
		}

		// Free the previously held seat before taking the new one.
		if !sameEntry && reg.ScheduleEntryID != nil && reg.Status.CountsTowardCapacity() {
			if err := releaseSeatTx(tx, *reg.ScheduleEntryID); err != nil {
				return err
			}
		}

		switch {
		case targetStatus.CountsTowardCapacity() && (!sameEntry || !reg.Status.CountsTowardCapacity()):
			entry.CurrentRegistrations++
		case sameEntry && reg.Status.CountsTowardCapacity() && !targetStatus.CountsTowardCapacity():
			// A counting registration pinned to its own entry with a
			// non-counting status gives its seat back.
			if entry.CurrentRegistrations > 0 {
				entry.CurrentRegistrations--
			}
		}
		if entry.Status != models.ScheduleClosed {
			entry.Status = models.ScheduleOpen
			if entry.CurrentRegistrations >= entry.MaxCapacity {
				entry.Status = models.ScheduleFull
			}
		}
		if err := tx.Save(entry).Error; err != nil {
			return err
		}

		from := reg.Status
		reg.ScheduleEntryID = &entry.ID
		reg.AssignedDate = &entry.Date
		assignedSession := entry.Session
		reg.AssignedSession = &assignedSession
		reg.Status = targetStatus
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		return appendEvent(tx, &reg, from, note)
	})
	if err != nil {
		return nil, false, err
	}
	return &reg, moved, nil
}

func checkAssignable(status models.RegistrationStatus, mode assignMode) error {
	switch status {
	case models.StatusRegistered, models.StatusAssigned:
		return nil
	case models.StatusCancelled:
		if !mode.enforceCapacity {
			// Operator override may revive cancelled registrations.
			return nil
		}
		return fmt.Errorf("%w: cancelled registration cannot self-assign", ErrIllegalTransition)
	default:
		return fmt.Errorf("%w: cannot assign a registration in status %q", ErrIllegalTransition, status)
	}
}

// findOrCreateEntry looks up the target entry. On the operator path a missing
// entry is derived from the current window settings.
func (e *Engine) findOrCreateEntry(tx *gorm.DB, date time.Time, session models.Session, createMissing bool) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := tx.Where("date = ? AND session = ?", date, session).First(&entry).Error
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !createMissing {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, models.EntryKey(date, session))
	}

	var w models.RegistrationWindow
	capacityPerDay := e.defaultCapacityPerDay
	if err := tx.First(&w, models.WindowID).Error; err == nil && w.CapacityPerDay > 0 {
		capacityPerDay = w.CapacityPerDay
	}
	capacity := capacityPerDay / 2
	if capacity < 1 {
		capacity = 1
	}

	startTime, endTime := e.defaultTimes.bounds(session)
	entry = models.ScheduleEntry{
		Date:        date,
		Session:     session,
		StartTime:   startTime,
		EndTime:     endTime,
		MaxCapacity: capacity,
		Status:      models.ScheduleOpen,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// releaseSeatTx decrements an entry's counter, never below zero, and flips a
// full entry back to open. Manually closed entries keep their status.
func releaseSeatTx(tx *gorm.DB, entryID uint) error {
	var entry models.ScheduleEntry
	if err := tx.First(&entry, entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if entry.CurrentRegistrations > 0 {
		entry.CurrentRegistrations--
	}
	if entry.Status != models.ScheduleClosed {
		entry.Status = models.ScheduleOpen
		if entry.CurrentRegistrations >= entry.MaxCapacity {
			entry.Status = models.ScheduleFull
		}
	}
	return tx.Save(&entry).Error
}

// BulkFailure reports one ineligible registration in a bulk request.
type BulkFailure struct {
	RegistrationID uint   `json:"registration_id"`
	Reason         string `json:"reason"`
}

// BulkResult reports the outcome of a bulk assignment.
type BulkResult struct {
	AssignedCount int           `json:"assigned_count"`
	Succeeded     []uint        `json:"succeeded"`
	Failed        []BulkFailure `json:"failed"`
}

// BulkAssignParams describes a bulk assignment request.
type BulkAssignParams struct {
	RegistrationIDs []uint         `validate:"required,min=1"`
	Date            time.Time      `validate:"required"`
	Session         models.Session `validate:"required"`
}

// BulkAssign assigns a batch of registrations to one session. Preconditions
// are all-or-nothing: every registration must currently be "registered" and
// the entry must have room for the whole batch, otherwise nothing is mutated.
func (e *Engine) BulkAssign(ctx context.Context, p BulkAssignParams) (*BulkResult, error) {
	if err := e.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !p.Session.Valid() {
		return nil, fmt.Errorf("%w: unknown session %q", ErrValidation, p.Session)
	}
	date := models.DateOnly(p.Date)

	ids := append([]uint(nil), p.RegistrationIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	// A repeated id must not take two seats.
	dedup := ids[:0]
	for _, id := range ids {
		if n := len(dedup); n == 0 || dedup[n-1] != id {
			dedup = append(dedup, id)
		}
	}
	ids = dedup

	unlock := e.locks.lock(models.EntryKey(date, p.Session))
	defer unlock()

	result := &BulkResult{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ScheduleEntry
		if err := tx.Where("date = ? AND session = ?", date, p.Session).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrScheduleNotFound, models.EntryKey(date, p.Session))
			}
			return err
		}
		if entry.Status == models.ScheduleClosed {
			return fmt.Errorf("%w: session %s is closed", ErrScheduleNotFound, entry.Key())
		}

		var regs []models.Registration
		if err := tx.Where("id IN ?", ids).Find(&regs).Error; err != nil {
			return err
		}
		byID := make(map[uint]*models.Registration, len(regs))
		for i := range regs {
			byID[regs[i].ID] = &regs[i]
		}
		for _, id := range ids {
			reg, ok := byID[id]
			switch {
			case !ok:
				result.Failed = append(result.Failed, BulkFailure{RegistrationID: id, Reason: "not found"})
			case reg.Status != models.StatusRegistered:
				result.Failed = append(result.Failed, BulkFailure{RegistrationID: id, Reason: fmt.Sprintf("status is %q, want %q", reg.Status, models.StatusRegistered)})
			}
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%w: %d of %d registrations ineligible", ErrPartialEligibility, len(result.Failed), len(ids))
		}

		if entry.AvailableCapacity() < len(ids) {
			metrics.CapacityRejectionsTotal.Inc()
			return fmt.Errorf("%w: %s has %d free seats, need %d", ErrCapacityExceeded, entry.Key(), entry.AvailableCapacity(), len(ids))
		}

		for _, id := range ids {
			reg := byID[id]
			from := reg.Status
			reg.ScheduleEntryID = &entry.ID
			reg.AssignedDate = &entry.Date
			assignedSession := entry.Session
			reg.AssignedSession = &assignedSession
			reg.Status = models.StatusAssigned
			if err := tx.Save(reg).Error; err != nil {
				return err
			}
			if err := appendEvent(tx, reg, from, "bulk assignment"); err != nil {
				return err
			}
			result.Succeeded = append(result.Succeeded, id)
		}

		entry.CurrentRegistrations += len(ids)
		if entry.CurrentRegistrations >= entry.MaxCapacity {
			entry.Status = models.ScheduleFull
		}
		return tx.Save(&entry).Error
	})
	if err != nil {
		// Keep the collected failures visible alongside the error.
		result.Succeeded = nil
		result.AssignedCount = 0
		if errors.Is(err, ErrPartialEligibility) {
			return result, err
		}
		return nil, err
	}
	result.AssignedCount = len(result.Succeeded)
	metrics.AssignmentsTotal.WithLabelValues("bulk", string(p.Session)).Add(float64(result.AssignedCount))
	return result, nil
}

// RegisterExaminee creates a new "registered" record for the current cycle.
// An empty examinee reference gets a generated one.
func (e *Engine) RegisterExaminee(ctx context.Context, examineeID string) (*models.Registration, error) {
	w, err := e.Window(ctx)
	if err != nil {
		return nil, err
	}
	if !w.IsOpen {
		return nil, fmt.Errorf("%w: registration is not open", ErrWindowClosed)
	}
	if examineeID == "" {
		examineeID = uuid.NewString()
	}

	reg := models.Registration{
		ExamineeID:   examineeID,
		Status:       models.StatusRegistered,
		RegisteredAt: e.clock.now(),
	}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Registration{}).Where("examinee_id = ?", examineeID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: examinee %s is already registered", ErrValidation, examineeID)
		}
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		return appendEvent(tx, &reg, "", "registered")
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
