package engine

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/metrics"
	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// ReconcileResult reports how many entries had a drifted counter or status.
type ReconcileResult struct {
	CheckedCount   int `json:"checked_count"`
	CorrectedCount int `json:"corrected_count"`
}

// ReconcileCapacity recomputes every entry's counter from the registrations
// that actually hold a seat there, correcting any drift. Each entry is
// handled in its own locked transaction, so the job is safe to run while
// assignments are in flight and can be interrupted between entries.
func (e *Engine) ReconcileCapacity(ctx context.Context) (*ReconcileResult, error) {
	var ids []uint
	if err := e.db.WithContext(ctx).Model(&models.ScheduleEntry{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}

	result := &ReconcileResult{}
	for _, id := range ids {
		corrected, err := e.reconcileEntry(ctx, id)
		if err != nil {
			return result, err
		}
		result.CheckedCount++
		if corrected {
			result.CorrectedCount++
			metrics.ReconcileCorrectionsTotal.Inc()
		}
	}
	return result, nil
}

func (e *Engine) reconcileEntry(ctx context.Context, entryID uint) (bool, error) {
	// The entry lock must be taken before the transaction opens, same order
	// as the assignment path, so the two can never deadlock.
	var probe models.ScheduleEntry
	if err := e.db.WithContext(ctx).First(&probe, entryID).Error; err != nil {
		return false, fmt.Errorf("reconcile entry %d: %w", entryID, err)
	}
	unlock := e.locks.lock(probe.Key())
	defer unlock()

	corrected := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ScheduleEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.Registration{}).
			Where("schedule_entry_id = ? AND status IN ?", entry.ID,
				[]models.RegistrationStatus{models.StatusAssigned, models.StatusCompleted}).
			Count(&count).Error
		if err != nil {
			return err
		}

		want := models.ScheduleEntry{
			CurrentRegistrations: int(count),
			Status:               entry.Status,
		}
		if entry.Status != models.ScheduleClosed {
			want.Status = models.ScheduleOpen
			if want.CurrentRegistrations >= entry.MaxCapacity {
				want.Status = models.ScheduleFull
			}
		}

		if entry.CurrentRegistrations == want.CurrentRegistrations && entry.Status == want.Status {
			return nil
		}
		entry.CurrentRegistrations = want.CurrentRegistrations
		entry.Status = want.Status
		corrected = true
		return tx.Save(&entry).Error
	})
	if err != nil {
		return false, fmt.Errorf("reconcile entry %d: %w", entryID, err)
	}
	return corrected, nil
}
