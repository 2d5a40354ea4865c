package engine

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// Registration loads one registration with its schedule entry.
func (e *Engine) Registration(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	err := e.db.WithContext(ctx).Preload("ScheduleEntry").First(&reg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrRegistrationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	return &reg, nil
}

// RegistrationEvents returns the audit trail of one registration, oldest
// first.
func (e *Engine) RegistrationEvents(ctx context.Context, id uint) ([]models.RegistrationEvent, error) {
	if _, err := e.Registration(ctx, id); err != nil {
		return nil, err
	}
	var events []models.RegistrationEvent
	err := e.db.WithContext(ctx).
		Where("registration_id = ?", id).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list registration events: %w", err)
	}
	return events, nil
}

// Cancel transitions a registration to cancelled and releases its seat.
func (e *Engine) Cancel(ctx context.Context, id uint, note string) (*models.Registration, error) {
	return e.transition(ctx, id, models.StatusCancelled, note, func(from models.RegistrationStatus) error {
		switch from {
		case models.StatusRegistered, models.StatusAssigned, models.StatusArchived:
			return nil
		case models.StatusCancelled:
			return fmt.Errorf("%w: registration is already cancelled", ErrIllegalTransition)
		default:
			return fmt.Errorf("%w: cannot cancel a registration in status %q", ErrIllegalTransition, from)
		}
	})
}

// Complete marks an assigned registration as having sat the exam.
func (e *Engine) Complete(ctx context.Context, id uint) (*models.Registration, error) {
	return e.transition(ctx, id, models.StatusCompleted, "completed", func(from models.RegistrationStatus) error {
		if from != models.StatusAssigned {
			return fmt.Errorf("%w: only assigned registrations can be completed, got %q", ErrIllegalTransition, from)
		}
		return nil
	})
}

// Archive moves a resolved registration out of the active cycle.
func (e *Engine) Archive(ctx context.Context, id uint) (*models.Registration, error) {
	return e.transition(ctx, id, models.StatusArchived, "archived", func(from models.RegistrationStatus) error {
		if from != models.StatusCompleted && from != models.StatusCancelled {
			return fmt.Errorf("%w: only completed or cancelled registrations can be archived, got %q", ErrIllegalTransition, from)
		}
		return nil
	})
}

// Reinstate returns a cancelled or archived registration to the initial
// registered state. The stale assignment is cleared in the same transaction
// so an interrupted reinstate never leaves a registered record pointing at an
// entry.
func (e *Engine) Reinstate(ctx context.Context, id uint) (*models.Registration, error) {
	probe, err := e.Registration(ctx, id)
	if err != nil {
		return nil, err
	}

	var unlock func()
	if probe.AssignedDate != nil && probe.AssignedSession != nil {
		unlock = e.locks.lock(models.EntryKey(*probe.AssignedDate, *probe.AssignedSession))
		defer unlock()
	}

	var reg models.Registration
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrRegistrationNotFound, id)
			}
			return err
		}
		from := reg.Status
		if from != models.StatusCancelled && from != models.StatusArchived {
			return fmt.Errorf("%w: only cancelled or archived registrations can be reinstated, got %q", ErrIllegalTransition, from)
		}
		reg.Status = models.StatusRegistered
		reg.ScheduleEntryID = nil
		reg.AssignedDate = nil
		reg.AssignedSession = nil
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		return appendEvent(tx, &reg, from, "reinstated")
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Delete hard-deletes a registration, the one terminal action that destroys
// the record. A held seat is released first.
func (e *Engine) Delete(ctx context.Context, id uint) error {
	reg, err := e.Registration(ctx, id)
	if err != nil {
		return err
	}

	var unlock func()
	if reg.AssignedDate != nil && reg.AssignedSession != nil {
		unlock = e.locks.lock(models.EntryKey(*reg.AssignedDate, *reg.AssignedSession))
		defer unlock()
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fresh models.Registration
		if err := tx.First(&fresh, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if fresh.ScheduleEntryID != nil && fresh.Status.CountsTowardCapacity() {
			if err := releaseSeatTx(tx, *fresh.ScheduleEntryID); err != nil {
				return err
			}
		}
		if err := appendEvent(tx, &fresh, fresh.Status, "hard delete"); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Registration{}, id).Error
	})
}

// transition applies one audited status change, releasing the seat when the
// registration stops counting toward capacity.
func (e *Engine) transition(ctx context.Context, id uint, to models.RegistrationStatus, note string, check func(from models.RegistrationStatus) error) (*models.Registration, error) {
	probe, err := e.Registration(ctx, id)
	if err != nil {
		return nil, err
	}

	var unlock func()
	if probe.AssignedDate != nil && probe.AssignedSession != nil {
		unlock = e.locks.lock(models.EntryKey(*probe.AssignedDate, *probe.AssignedSession))
		defer unlock()
	}

	var reg models.Registration
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrRegistrationNotFound, id)
			}
			return err
		}
		from := reg.Status
		if err := check(from); err != nil {
			return err
		}
		if reg.ScheduleEntryID != nil && from.CountsTowardCapacity() && !to.CountsTowardCapacity() {
			if err := releaseSeatTx(tx, *reg.ScheduleEntryID); err != nil {
				return err
			}
		}
		reg.Status = to
		if err := tx.Save(&reg).Error; err != nil {
			return err
		}
		return appendEvent(tx, &reg, from, note)
	})
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
