package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/metrics"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// RescheduleDay moves every assigned registration from one exam date to the
// same session on another date; used when a whole exam day is called off.
// Each session is its own transaction, so an interrupted move leaves no
// half-updated entry, only an incomplete day that a re-run finishes.
func (e *Engine) RescheduleDay(ctx context.Context, fromDate, toDate time.Time) (int, error) {
	fromDate = models.DateOnly(fromDate)
	toDate = models.DateOnly(toDate)
	if fromDate.Equal(toDate) {
		return 0, fmt.Errorf("%w: source and target date are the same", ErrValidation)
	}

	moved := 0
	for _, session := range models.Sessions {
		n, err := e.rescheduleSession(ctx, fromDate, toDate, session)
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}

func (e *Engine) rescheduleSession(ctx context.Context, fromDate, toDate time.Time, session models.Session) (int, error) {
	unlock := e.locks.lock(models.EntryKey(fromDate, session), models.EntryKey(toDate, session))
	defer unlock()

	moved := 0
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source models.ScheduleEntry
		err := tx.Where("date = ? AND session = ?", fromDate, session).First(&source).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var movers []models.Registration
		err = tx.Where("schedule_entry_id = ? AND status = ?", source.ID, models.StatusAssigned).
			Order("id ASC").
			Find(&movers).Error
		if err != nil {
			return err
		}
		if len(movers) == 0 {
			return nil
		}

		var target models.ScheduleEntry
		err = tx.Where("date = ? AND session = ?", toDate, session).First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrScheduleNotFound, models.EntryKey(toDate, session))
		}
		if err != nil {
			return err
		}
		if target.Status == models.ScheduleClosed {
			return fmt.Errorf("%w: session %s is closed", ErrScheduleNotFound, target.Key())
		}
		if target.AvailableCapacity() < len(movers) {
			metrics.CapacityRejectionsTotal.Inc()
			return fmt.Errorf("%w: %s has %d free seats, need %d", ErrCapacityExceeded, target.Key(), target.AvailableCapacity(), len(movers))
		}

		for i := range movers {
			reg := &movers[i]
			reg.ScheduleEntryID = &target.ID
			reg.AssignedDate = &target.Date
			assignedSession := target.Session
			reg.AssignedSession = &assignedSession
			if err := tx.Save(reg).Error; err != nil {
				return err
			}
			if err := appendEvent(tx, reg, reg.Status, fmt.Sprintf("day rescheduled from %s", fromDate.Format("2006-01-02"))); err != nil {
				return err
			}
		}

		source.CurrentRegistrations -= len(movers)
		if source.CurrentRegistrations < 0 {
			source.CurrentRegistrations = 0
		}
		if source.Status != models.ScheduleClosed {
			source.Status = models.ScheduleOpen
			if source.CurrentRegistrations >= source.MaxCapacity {
				source.Status = models.ScheduleFull
			}
		}
		if err := tx.Save(&source).Error; err != nil {
			return err
		}

		target.CurrentRegistrations += len(movers)
		target.Status = models.ScheduleOpen
		if target.CurrentRegistrations >= target.MaxCapacity {
			target.Status = models.ScheduleFull
		}
		if err := tx.Save(&target).Error; err != nil {
			return err
		}

		moved = len(movers)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		metrics.AssignmentsTotal.WithLabelValues("day_reschedule", string(session)).Add(float64(moved))
	}
	return moved, nil
}
