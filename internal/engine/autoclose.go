package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/metrics"
	"github.com/examdesk/exam-scheduler-api/internal/models"
	"github.com/examdesk/exam-scheduler-api/internal/notifier"
)

// SweepReport is the outcome of one full sweep pipeline run.
type SweepReport struct {
	CancelledNoShows int  `json:"cancelled_no_shows"`
	ClosedSchedules  int  `json:"closed_schedules"`
	WindowClosed     bool `json:"window_closed"`
}

// SweepNoShows cancels every assigned registration whose exam date has
// passed. Each registration is its own transaction: a failure on one is
// logged and skipped, and a subsequent run finishes the job.
func (e *Engine) SweepNoShows(ctx context.Context) (int, error) {
	today := models.DateOnly(e.clock.now())

	var ids []uint
	err := e.db.WithContext(ctx).Model(&models.Registration{}).
		Where("status = ? AND assigned_date < ?", models.StatusAssigned, today).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list no-shows: %w", err)
	}

	cancelled := 0
	for _, id := range ids {
		if _, err := e.Cancel(ctx, id, "no-show: exam date passed"); err != nil {
			log.Printf("no-show sweep: registration %d: %v", id, err)
			continue
		}
		cancelled++
		metrics.SweepTransitionsTotal.WithLabelValues("no_show").Inc()
	}
	return cancelled, nil
}

// SweepScheduleClosures closes every entry whose registrations are all
// resolved (completed or cancelled, none still assigned or pending). Entries
// without any registration are left alone here; only explicit date-range
// closure (window close) sweeps those too.
func (e *Engine) SweepScheduleClosures(ctx context.Context) (int, error) {
	return e.sweepScheduleClosures(ctx, nil, false)
}

func (e *Engine) sweepScheduleClosures(ctx context.Context, through *time.Time, includeEmpty bool) (int, error) {
	q := e.db.WithContext(ctx).Model(&models.ScheduleEntry{}).
		Where("status <> ?", models.ScheduleClosed)
	if through != nil {
		q = q.Where("date <= ?", models.DateOnly(*through))
	}
	var ids []uint
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("list open entries: %w", err)
	}

	closed := 0
	for _, id := range ids {
		didClose, err := e.closeEntryIfResolved(ctx, id, includeEmpty)
		if err != nil {
			log.Printf("schedule closure sweep: entry %d: %v", id, err)
			continue
		}
		if didClose {
			closed++
			metrics.SweepTransitionsTotal.WithLabelValues("schedule_closure").Inc()
		}
	}
	return closed, nil
}

func (e *Engine) closeEntryIfResolved(ctx context.Context, entryID uint, includeEmpty bool) (bool, error) {
	var probe models.ScheduleEntry
	if err := e.db.WithContext(ctx).First(&probe, entryID).Error; err != nil {
		return false, err
	}
	unlock := e.locks.lock(probe.Key())
	defer unlock()

	didClose := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.ScheduleEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			return err
		}
		if entry.Status == models.ScheduleClosed {
			return nil
		}

		var unresolved, resolved int64
		err := tx.Model(&models.Registration{}).
			Where("schedule_entry_id = ? AND status IN ?", entry.ID,
				[]models.RegistrationStatus{models.StatusRegistered, models.StatusAssigned}).
			Count(&unresolved).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.Registration{}).
			Where("schedule_entry_id = ? AND status IN ?", entry.ID,
				[]models.RegistrationStatus{models.StatusCompleted, models.StatusCancelled}).
			Count(&resolved).Error
		if err != nil {
			return err
		}

		if unresolved > 0 {
			return nil
		}
		if resolved == 0 && !includeEmpty {
			return nil
		}

		entry.Status = models.ScheduleClosed
		didClose = true
		return tx.Save(&entry).Error
	})
	return didClose, err
}

// SweepWindowClosure closes the window once every entry in the catalog is
// closed. An empty catalog never closes the window.
func (e *Engine) SweepWindowClosure(ctx context.Context) (bool, error) {
	e.windowMu.Lock()
	defer e.windowMu.Unlock()

	w, err := e.Window(ctx)
	if err != nil {
		return false, err
	}
	if !w.IsOpen {
		return false, nil
	}

	var total, open int64
	if err := e.db.WithContext(ctx).Model(&models.ScheduleEntry{}).Count(&total).Error; err != nil {
		return false, fmt.Errorf("count entries: %w", err)
	}
	if total == 0 {
		return false, nil
	}
	err = e.db.WithContext(ctx).Model(&models.ScheduleEntry{}).
		Where("status <> ?", models.ScheduleClosed).
		Count(&open).Error
	if err != nil {
		return false, fmt.Errorf("count open entries: %w", err)
	}
	if open > 0 {
		return false, nil
	}

	message := "All exam sessions are closed; registration window closed automatically."
	if _, err := e.closeWindowLocked(ctx, false, message); err != nil {
		return false, err
	}
	metrics.SweepTransitionsTotal.WithLabelValues("window_closure").Inc()
	return true, nil
}

// RunSweeps chains the three sweeps in their required order: cancellations
// can make an entry closure-eligible, and entry closures can make the window
// closure-eligible. Window closure is only evaluated when the schedule sweep
// closed something.
func (e *Engine) RunSweeps(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	cancelled, err := e.SweepNoShows(ctx)
	if err != nil {
		return report, err
	}
	report.CancelledNoShows = cancelled

	closed, err := e.SweepScheduleClosures(ctx)
	if err != nil {
		return report, err
	}
	report.ClosedSchedules = closed

	if closed > 0 {
		windowClosed, err := e.SweepWindowClosure(ctx)
		if err != nil {
			return report, err
		}
		report.WindowClosed = windowClosed
	}

	if report.CancelledNoShows > 0 || report.ClosedSchedules > 0 {
		e.notify(func(n notifier.Notifier) error {
			return n.NotifySweepSummary(report.CancelledNoShows, report.ClosedSchedules, report.WindowClosed)
		})
	}
	return report, nil
}
