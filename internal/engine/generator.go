package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/examdesk/exam-scheduler-api/internal/models"
)

// GenerateParams describes one schedule-generation request. When
// SelectedDates is empty, every weekday in [StartDate, EndDate] is used.
type GenerateParams struct {
	StartDate      time.Time
	EndDate        time.Time
	CapacityPerDay int
	SelectedDates  []time.Time
	Times          TimeSettings
}

// GenerateSchedules creates or reopens the morning and afternoon entries for
// each target date. Daily capacity is split evenly across the two sessions.
// Existing entries that are not closed are left untouched: generation never
// silently overwrites an active session.
func (e *Engine) GenerateSchedules(ctx context.Context, p GenerateParams) ([]models.ScheduleEntry, error) {
	if p.CapacityPerDay < 1 {
		return nil, fmt.Errorf("%w: capacity per day must be at least 1", ErrValidation)
	}

	dates, err := p.targetDates()
	if err != nil {
		return nil, err
	}

	perSession := p.CapacityPerDay / 2
	if perSession < 1 {
		perSession = 1
	}

	var out []models.ScheduleEntry
	for _, date := range dates {
		for _, session := range models.Sessions {
			unlock := e.locks.lock(models.EntryKey(date, session))
			entry, err := e.upsertEntry(ctx, date, session, perSession, p.Times)
			unlock()
			if err != nil {
				return nil, err
			}
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (e *Engine) upsertEntry(ctx context.Context, date time.Time, session models.Session, capacity int, times TimeSettings) (*models.ScheduleEntry, error) {
	startTime, endTime := times.bounds(session)

	var entry models.ScheduleEntry
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("date = ? AND session = ?", date, session).First(&entry).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.ScheduleEntry{
				Date:                 date,
				Session:              session,
				StartTime:            startTime,
				EndTime:              endTime,
				MaxCapacity:          capacity,
				CurrentRegistrations: 0,
				Status:               models.ScheduleOpen,
			}
			return tx.Create(&entry).Error
		case err != nil:
			return err
		case entry.Status == models.ScheduleClosed:
			// Explicit reopen: refresh times and capacity.
			entry.StartTime = startTime
			entry.EndTime = endTime
			entry.MaxCapacity = capacity
			entry.Status = models.ScheduleOpen
			if entry.CurrentRegistrations >= entry.MaxCapacity {
				entry.Status = models.ScheduleFull
			}
			return tx.Save(&entry).Error
		default:
			// Active session, leave as is.
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("generate entry %s: %w", models.EntryKey(date, session), err)
	}
	return &entry, nil
}

func (p GenerateParams) targetDates() ([]time.Time, error) {
	if len(p.SelectedDates) > 0 {
		dates := make([]time.Time, 0, len(p.SelectedDates))
		seen := make(map[time.Time]bool, len(p.SelectedDates))
		for _, d := range p.SelectedDates {
			day := models.DateOnly(d)
			if !seen[day] {
				seen[day] = true
				dates = append(dates, day)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		return dates, nil
	}

	start := models.DateOnly(p.StartDate)
	end := models.DateOnly(p.EndDate)
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: date range or selected dates required", ErrValidation)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date is after end date", ErrValidation)
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	return dates, nil
}
